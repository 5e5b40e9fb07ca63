// # internal/engine/analyzer/grammar.go
package analyzer

import (
	"acyclic/internal/core/errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

const (
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
)

var extensions = map[string]string{
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangJavaScript,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// SupportedLanguages lists the grammar names accepted by LoadLanguage.
func SupportedLanguages() []string {
	return []string{LangJavaScript, LangTSX, LangTypeScript}
}

// LanguageForPath picks a grammar from a file extension, falling back to
// JavaScript since bundlers hand over transpiled code.
func LanguageForPath(path string) string {
	if lang, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LangJavaScript
}

func LoadLanguage(name string) (*sitter.Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LangJavaScript, "js", "":
		return sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	case LangTypeScript, "ts":
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case LangTSX:
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()), nil
	default:
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no grammar for language %q", name))
	}
}
