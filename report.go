package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/thiremani/sexpc/compiler"
	"github.com/thiremani/sexpc/lexer"
	"github.com/thiremani/sexpc/parser"
)

// errorOffset digs the source offset out of a pipeline error.
func errorOffset(err error) (int, bool) {
	var lexErr *lexer.Error
	var synErr *parser.SyntaxError
	var formErr *parser.FormError
	var compErr *compiler.CompileError
	var undefErr *compiler.UndefinedError
	switch {
	case errors.As(err, &lexErr):
		return lexErr.Start, true
	case errors.As(err, &synErr):
		return synErr.Offset, true
	case errors.As(err, &formErr):
		return formErr.Offset, true
	case errors.As(err, &compErr):
		return compErr.Offset, true
	case errors.As(err, &undefErr) && undefErr.Offset >= 0:
		return undefErr.Offset, true
	}
	return 0, false
}

// location converts a byte offset into a 1-based line and column.
func location(source string, offset int) (line, col int) {
	offset = min(max(offset, 0), len(source))
	before := source[:offset]
	line = strings.Count(before, "\n") + 1
	col = offset - strings.LastIndexByte(before, '\n')
	return line, col
}

// rawOffset matches the byte offset (or start:end range) that pipeline errors
// put in front of their message.
var rawOffset = regexp.MustCompile(`^\d+(:\d+)?: `)

// describe replaces the byte offset err carries with line:col.
func describe(source string, err error) string {
	offset, ok := errorOffset(err)
	if !ok {
		return " " + err.Error()
	}
	line, col := location(source, offset)
	return fmt.Sprintf("%d:%d: %s", line, col, rawOffset.ReplaceAllString(err.Error(), ""))
}
