package main

import (
	"errors"

	"github.com/openhab/yamlpp/internal/pp"
)

type errClass int

const (
	errClassGeneral errClass = iota
	errClassParse
	errClassLoad
	errClassSkip
)

// classifyErr maps a pp error into the CLI's exit-code taxonomy.
func classifyErr(err error) errClass {
	if err == nil {
		return errClassGeneral
	}
	var loadErr *pp.LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Line != 0 || loadErr.Column != 0 {
			return errClassParse
		}
		return errClassLoad
	}
	var skipErr *pp.SkipError
	if errors.As(err, &skipErr) {
		return errClassSkip
	}
	return errClassGeneral
}
