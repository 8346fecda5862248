package jsxtree

import (
	"fmt"
	"sync"
	"unsafe"

	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammarKey identifies one parser pool (language + TSX variant).
type grammarKey struct {
	lang  Language
	isTSX bool
}

// languagePointer returns the tree-sitter grammar for a key.
func languagePointer(key grammarKey) (unsafe.Pointer, error) {
	switch key.lang {
	case LanguageTypeScript:
		if key.isTSX {
			return ts_typescript.LanguageTSX(), nil
		}
		return ts_typescript.LanguageTypescript(), nil
	case LanguageJavaScript:
		return ts_javascript.Language(), nil
	default:
		return nil, fmt.Errorf("no grammar for language %s", key.lang)
	}
}

// parserPool hands out tree-sitter parsers for one grammar. Parsers are
// created lazily up to maxSize; acquire blocks once the pool is exhausted.
// Parsing crosses into CGO and holds a parser for the whole call, so the
// pool size bounds parse concurrency.
type parserPool struct {
	pool    chan *ts.Parser
	langPtr unsafe.Pointer
	key     grammarKey
	maxSize int

	mutex   sync.Mutex
	created int

	logger *slog.Logger
}

func newParserPool(key grammarKey, langPtr unsafe.Pointer, maxSize int, logger *slog.Logger) *parserPool {
	return &parserPool{
		pool:    make(chan *ts.Parser, maxSize),
		langPtr: langPtr,
		key:     key,
		maxSize: maxSize,
		logger:  logger,
	}
}

// acquire returns a parser, creating one if the pool has room.
func (p *parserPool) acquire() (*ts.Parser, error) {
	select {
	case parser := <-p.pool:
		return parser, nil
	default:
		return p.createParserIfNeeded()
	}
}

// createParserIfNeeded creates a parser below maxSize, otherwise blocks
// until one is released.
func (p *parserPool) createParserIfNeeded() (*ts.Parser, error) {
	p.mutex.Lock()

	if p.created < p.maxSize {
		parser := ts.NewParser()
		if parser == nil {
			p.mutex.Unlock()
			return nil, fmt.Errorf("failed to create parser")
		}

		tsLang := ts.NewLanguage(p.langPtr)
		if err := parser.SetLanguage(tsLang); err != nil {
			parser.Close()
			p.mutex.Unlock()
			return nil, fmt.Errorf("failed to set language: %w", err)
		}

		p.created++
		p.logger.Debug("created parser in pool",
			"language", p.key.lang.String(),
			"isTSX", p.key.isTSX,
			"pool_size", p.created)

		p.mutex.Unlock()
		return parser, nil
	}

	p.mutex.Unlock()
	parser := <-p.pool
	return parser, nil
}

// release returns a parser to the pool.
func (p *parserPool) release(parser *ts.Parser) {
	if parser == nil {
		return
	}

	select {
	case p.pool <- parser:
	default:
		// Pool is full; close the excess parser to avoid a leak.
		parser.Close()
		p.logger.Warn("parser pool full, closing excess parser",
			"language", p.key.lang.String())
	}
}

// close drains the pool and frees every parser. The pool cannot be used
// afterwards.
func (p *parserPool) close() {
	close(p.pool)

	count := 0
	for parser := range p.pool {
		if parser != nil {
			parser.Close()
			count++
		}
	}

	p.logger.Debug("closed parser pool",
		"language", p.key.lang.String(),
		"isTSX", p.key.isTSX,
		"parsers_closed", count)
}
