package model

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrModelParse 标记模型描述文件无法加载（文件缺失、字段缺失或格式错误）
var ErrModelParse = errors.New("model: parse failure")

const (
	fieldSlope = 1 << iota
	fieldIntercept
	fieldMinError
	fieldMaxError

	leafFields = fieldSlope | fieldIntercept | fieldMinError | fieldMaxError
	rootFields = fieldSlope | fieldIntercept
)

// ParseRMIFile 打开并解析模型文件。打开失败同样视为加载失败。
func ParseRMIFile(path string) (*RMIParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open model %s", path), ErrModelParse)
	}
	defer f.Close()
	return ParseRMI(f)
}

// ParseRMI 解析按行组织的类 JSON 模型描述。
//
// 这不是通用 JSON 解析器：每个字段必须独占一行，stage1 必须出现在
// stage2 之前，stage2 的每个对象由只含 "{" 与 "}" / "}," 的行界定。
// 允许任意空白与尾随逗号。
func ParseRMI(r io.Reader) (*RMIParams, error) {
	params := &RMIParams{}
	var (
		seenBranch bool
		seenStage2 bool
		inStage1   bool
		inStage2   bool
		inObject   bool
		rootSeen   int
		cur        LeafParams
		curSeen    int
		lineNo     int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.Contains(line, `"branch_factor"`):
			v, err := numericValue(line, `"branch_factor"`)
			if err != nil {
				return nil, errors.Wrapf(ErrModelParse, "line %d: branch_factor: %v", lineNo, err)
			}
			params.BranchFactor = int(v)
			seenBranch = true
		case strings.Contains(line, `"stage1"`):
			inStage1, inStage2 = true, false
		case strings.Contains(line, `"stage2"`):
			if rootSeen != rootFields {
				return nil, errors.Wrapf(ErrModelParse, "line %d: stage2 before a complete stage1", lineNo)
			}
			inStage1, inStage2 = false, true
			seenStage2 = true
		case inStage1:
			if err := parseRootField(line, &params.Stage1, &rootSeen); err != nil {
				return nil, errors.Wrapf(ErrModelParse, "line %d: stage1: %v", lineNo, err)
			}
		case inStage2:
			switch {
			case line == "{":
				if inObject {
					return nil, errors.Wrapf(ErrModelParse, "line %d: nested object in stage2", lineNo)
				}
				inObject = true
				cur, curSeen = LeafParams{}, 0
			case line == "}" || line == "},":
				if !inObject {
					// 根对象的结束括号
					inStage2 = false
					continue
				}
				if curSeen != leafFields {
					return nil, errors.Wrapf(ErrModelParse, "line %d: stage2 model %d is missing fields", lineNo, len(params.Stage2))
				}
				params.Stage2 = append(params.Stage2, cur)
				inObject = false
			case line == "]" || line == "],":
				inStage2 = false
			default:
				if !inObject {
					continue
				}
				if err := parseLeafField(line, &cur, &curSeen); err != nil {
					return nil, errors.Wrapf(ErrModelParse, "line %d: stage2: %v", lineNo, err)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read model"), ErrModelParse)
	}

	switch {
	case !seenBranch:
		return nil, errors.Wrap(ErrModelParse, "missing branch_factor")
	case params.BranchFactor <= 0:
		return nil, errors.Wrapf(ErrModelParse, "invalid branch_factor %d", params.BranchFactor)
	case rootSeen != rootFields:
		return nil, errors.Wrap(ErrModelParse, "missing stage1")
	case !seenStage2:
		return nil, errors.Wrap(ErrModelParse, "missing stage2")
	case inObject:
		return nil, errors.Wrap(ErrModelParse, "unterminated stage2 model")
	case len(params.Stage2) != params.BranchFactor:
		return nil, errors.Wrapf(ErrModelParse, "stage2 has %d models, branch_factor is %d",
			len(params.Stage2), params.BranchFactor)
	}
	return params, nil
}

func parseRootField(line string, p *LinearParams, seen *int) error {
	switch {
	case strings.Contains(line, `"slope"`):
		v, err := numericValue(line, `"slope"`)
		if err != nil {
			return err
		}
		p.Slope = v
		*seen |= fieldSlope
	case strings.Contains(line, `"intercept"`):
		v, err := numericValue(line, `"intercept"`)
		if err != nil {
			return err
		}
		p.Intercept = v
		*seen |= fieldIntercept
	}
	return nil
}

func parseLeafField(line string, p *LeafParams, seen *int) error {
	var (
		key  string
		bit  int
		dest func(float64)
	)
	switch {
	case strings.Contains(line, `"slope"`):
		key, bit, dest = `"slope"`, fieldSlope, func(v float64) { p.Slope = v }
	case strings.Contains(line, `"intercept"`):
		key, bit, dest = `"intercept"`, fieldIntercept, func(v float64) { p.Intercept = v }
	case strings.Contains(line, `"min_error"`):
		key, bit, dest = `"min_error"`, fieldMinError, func(v float64) { p.MinError = int(v) }
	case strings.Contains(line, `"max_error"`):
		key, bit, dest = `"max_error"`, fieldMaxError, func(v float64) { p.MaxError = int(v) }
	default:
		return nil
	}
	v, err := numericValue(line, key)
	if err != nil {
		return err
	}
	dest(v)
	*seen |= bit
	return nil
}

// numericValue 取出 `"key": <number>,` 中的数值
func numericValue(line, key string) (float64, error) {
	pos := strings.Index(line, key)
	if pos < 0 {
		return 0, errors.Newf("key %s not found", key)
	}
	rest := line[pos+len(key):]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return 0, errors.Newf("missing ':' after %s", key)
	}
	value := strings.TrimSpace(rest[colon+1:])
	value = strings.TrimSpace(strings.TrimSuffix(value, ","))
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "value of %s", key)
	}
	return v, nil
}

// WriteRMI 以 ParseRMI 能够读取的格式（两空格缩进的 JSON）输出模型
func WriteRMI(w io.Writer, params *RMIParams) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode model")
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteRMIFile 写入模型文件
func WriteRMIFile(path string, params *RMIParams) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create model %s", path)
	}
	if err := WriteRMI(f, params); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
