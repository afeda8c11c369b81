package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxTitleRunes = 200

type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %+v", e.Errors)
}

type Validator struct {
	Errors map[string]string
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	if _, ok := v.Errors[field]; !ok {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

func (v *Validator) ValidationError() error {
	return &ValidationError{Errors: v.Errors}
}

func validateTitle(v *Validator, title string) {
	v.Check(strings.TrimSpace(title) != "", "title", "タイトルを入力してください")
	v.Check(utf8.RuneCountInString(title) <= maxTitleRunes, "title", fmt.Sprintf("タイトルは%d文字以内にしてください", maxTitleRunes))
}

func validateContent(v *Validator, content string) {
	v.Check(strings.TrimSpace(content) != "", "content", "本文を入力してください")
}
