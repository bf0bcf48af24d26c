// Package catalog 提供 NIOS 10th / 12th 两个学段的可选科目目录。
package catalog

import (
	"errors"
	"fmt"
)

// Class 学段
type Class string

const (
	Class10 Class = "10th"
	Class12 Class = "12th"
)

var (
	ErrUnknownClass   = errors.New("未知的学段")
	ErrUnknownSubject = errors.New("科目不在该学段目录内")
	ErrNoSubjects     = errors.New("至少选择一门科目")
	ErrDupSubject     = errors.New("科目重复")
)

var subjects = map[Class][]string{
	Class12: {
		"Physics (312)",
		"Chemistry (313)",
		"Biology (314)",
		"Mathematics (311)",
		"History (315)",
		"Geography (316)",
		"Political Science (317)",
		"Economics (318)",
		"Business Studies (319)",
		"Accountancy (320)",
		"Home Science (321)",
		"Psychology (328)",
		"Computer Science (330)",
		"Sociology (331)",
		"Painting (332)",
		"Environmental Science (333)",
		"Mass Communication (335)",
		"Data Entry Operations (336)",
		"English (302)",
		"Hindi (301)",
	},
	Class10: {
		"Hindi (201)",
		"English (202)",
		"Mathematics (211)",
		"Science & Technology (212)",
		"Social Science (213)",
		"Economics (214)",
		"Business Studies (215)",
		"Home Science (216)",
		"Psychology (222)",
		"Indian Culture & Heritage (223)",
		"Accountancy (224)",
		"Painting (225)",
		"Data Entry Operations (229)",
	},
}

// ParseClass 解析学段
func ParseClass(v string) (Class, error) {
	c := Class(v)
	if _, ok := subjects[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownClass, v)
	}
	return c, nil
}

// Subjects 返回学段科目目录副本
func Subjects(c Class) ([]string, error) {
	list, ok := subjects[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, string(c))
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

// ValidateSubjects 校验所选科目均属于该学段且不重复
func ValidateSubjects(c Class, chosen []string) error {
	list, ok := subjects[c]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, string(c))
	}
	if len(chosen) == 0 {
		return ErrNoSubjects
	}

	allowed := make(map[string]struct{}, len(list))
	for _, s := range list {
		allowed[s] = struct{}{}
	}
	seen := make(map[string]struct{}, len(chosen))
	for _, s := range chosen {
		if _, ok := allowed[s]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSubject, s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %q", ErrDupSubject, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}
