// Package keyfile 读写键集合文件。
//
// 二进制格式：
//
//	[Key 8B LE] * N
//	[Count 8B] [CRC32 4B] [Reserved 4B] [Magic 8B]
//
// CRC32 覆盖全部键的字节。另外支持每行一个十进制键的文本格式，
// 便于交给外部训练脚本。
package keyfile

import (
	"bufio"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"indexbench/pkg/common"
)

const (
	MagicNumber = 0x4B45595346494C45 // "KEYSFILE"
	FooterSize  = 8 + 4 + 4 + 8
)

var ErrCorrupt = errors.New("keyfile: corrupt file")

type Writer struct {
	file   *os.File
	writer *bufio.Writer
	crc    hash.Hash32
	count  uint64
	buf    [8]byte
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create key file %s", path)
	}
	return &Writer{
		file:   f,
		writer: bufio.NewWriter(f),
		crc:    crc32.NewIEEE(),
	}, nil
}

func (w *Writer) Add(key common.KeyType) error {
	binary.LittleEndian.PutUint64(w.buf[:], uint64(key))
	if _, err := w.writer.Write(w.buf[:]); err != nil {
		return err
	}
	w.crc.Write(w.buf[:])
	w.count++
	return nil
}

// Close 写入尾部并关闭文件
func (w *Writer) Close() error {
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(footer[0:8], w.count)
	binary.LittleEndian.PutUint32(footer[8:12], w.crc.Sum32())
	binary.LittleEndian.PutUint64(footer[16:24], MagicNumber)

	if _, err := w.writer.Write(footer); err != nil {
		w.file.Close()
		return err
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Write 一次写出全部键
func Write(path string, keys []common.KeyType) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.Add(k); err != nil {
			w.file.Close()
			return errors.Wrap(err, "write key")
		}
	}
	return w.Close()
}

// Read 读入二进制键文件并校验数量、CRC 与魔数
func Read(path string) ([]common.KeyType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read key file %s", path)
	}
	if len(data) < FooterSize {
		return nil, errors.Wrap(ErrCorrupt, "file too small")
	}

	body, footer := data[:len(data)-FooterSize], data[len(data)-FooterSize:]
	if binary.LittleEndian.Uint64(footer[16:24]) != MagicNumber {
		return nil, errors.Wrap(ErrCorrupt, "invalid magic number")
	}
	count := binary.LittleEndian.Uint64(footer[0:8])
	if uint64(len(body)) != count*8 {
		return nil, errors.Wrapf(ErrCorrupt, "footer says %d keys, body holds %d bytes", count, len(body))
	}
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(footer[8:12]) {
		return nil, errors.Wrap(ErrCorrupt, "crc mismatch")
	}

	keys := make([]common.KeyType, count)
	for i := range keys {
		keys[i] = common.KeyType(binary.LittleEndian.Uint64(body[i*8:]))
	}
	return keys, nil
}

// WriteText 每行一个键
func WriteText(path string, keys []common.KeyType) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	for _, k := range keys {
		w.WriteString(strconv.FormatInt(int64(k), 10))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadText 读取每行一个键的文本文件，忽略空行
func ReadText(path string) ([]common.KeyType, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var keys []common.KeyType
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		keys = append(keys, common.KeyType(v))
	}
	return keys, scanner.Err()
}

// Load 按魔数自动识别二进制或文本格式
func Load(path string) ([]common.KeyType, error) {
	keys, err := Read(path)
	if err == nil {
		return keys, nil
	}
	if !errors.Is(err, ErrCorrupt) {
		return nil, err
	}
	if text, terr := ReadText(path); terr == nil {
		return text, nil
	}
	return nil, err
}
