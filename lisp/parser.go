package lisp

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/ardnew/parembnet/lisp/internal/token"
	"github.com/ardnew/parembnet/log"
)

// errIncomplete signals that the buffer ran out mid-expression; ParseNext
// turns it into io.EOF and rewinds to the last savepoint, per spec section
// 4.1 ("restoring the buffer if incomplete").
var errIncomplete = errors.New("lisp: incomplete expression")

// Parser reads s-expressions from an append-only character buffer with a
// single savepoint, per spec section 4.1.
type Parser struct {
	buf      []rune
	pos      int
	bqDepth  int
	packages *Packages
	current  *Package
	Logger   log.Logger
}

// NewParser returns a parser that interns unqualified symbols into current
// and resolves package-prefixed symbols against pkgs.
func NewParser(pkgs *Packages, current *Package) *Parser {
	return &Parser{packages: pkgs, current: current}
}

// AddString appends more source text to the buffer; already-parsed
// content is never revisited.
func (p *Parser) AddString(s string) {
	p.buf = append(p.buf, []rune(s)...)
}

// ParseNext parses and returns one expression, or io.EOF if the buffer
// holds no complete expression (the buffer is left unmodified in that
// case). A parser error leaves the stream at an unspecified point after
// the failure, per spec section 4.1.
func (p *Parser) ParseNext() (Val, error) {
	start := p.pos

	p.skipSpaceAndComments()
	if p.pos >= len(p.buf) {
		p.pos = start

		return Nil, io.EOF
	}

	v, err := p.parseExpr()
	if err != nil {
		if errors.Is(err, errIncomplete) {
			p.pos = start

			return Nil, io.EOF
		}

		return Nil, err
	}

	p.Logger.TraceContext(log.DefaultContextProvider(), "parsed expression", slog.String("form", Print(v)))

	return v, nil
}

// ParseAll drains every complete expression currently in the buffer.
func (p *Parser) ParseAll() ([]Val, error) {
	var out []Val

	for {
		v, err := p.ParseNext()
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return out, err
		}

		out = append(out, v)
	}
}

func (p *Parser) symGlobal(name string) Val { return SymVal(p.packages.Global.Intern(name)) }

func isDelim(r rune) bool {
	switch r {
	case '(', ')', '{', '}', '"', '\'', '`', ',', ';':
		return true
	default:
		return unicode.IsSpace(r)
	}
}

func (p *Parser) skipSpaceAndComments() {
	for p.pos < len(p.buf) {
		r := p.buf[p.pos]

		switch {
		case unicode.IsSpace(r):
			p.pos++
		case r == ';':
			for p.pos < len(p.buf) && p.buf[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *Parser) lineCol(pos int) (int, int) {
	line, col := 1, 1

	for i := 0; i < pos && i < len(p.buf); i++ {
		if p.buf[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}

func (p *Parser) nextToken() (token.Token, error) {
	p.skipSpaceAndComments()
	if p.pos >= len(p.buf) {
		return token.Token{Kind: token.EOF}, errIncomplete
	}

	line, col := p.lineCol(p.pos)
	r := p.buf[p.pos]

	switch r {
	case '(':
		p.pos++

		return token.Token{Kind: token.LParen, Line: line, Col: col}, nil
	case ')':
		p.pos++

		return token.Token{Kind: token.RParen, Line: line, Col: col}, nil
	case '{':
		p.pos++

		return token.Token{Kind: token.LBrace, Line: line, Col: col}, nil
	case '}':
		p.pos++

		return token.Token{Kind: token.RBrace, Line: line, Col: col}, nil
	case '\'':
		p.pos++

		return token.Token{Kind: token.Quote, Line: line, Col: col}, nil
	case '`':
		p.pos++

		return token.Token{Kind: token.Backquote, Line: line, Col: col}, nil
	case ',':
		p.pos++

		if p.pos < len(p.buf) && p.buf[p.pos] == '@' {
			p.pos++

			return token.Token{Kind: token.CommaAt, Line: line, Col: col}, nil
		}

		return token.Token{Kind: token.Comma, Line: line, Col: col}, nil
	case '"':
		return p.scanString(line, col)
	default:
		return p.scanAtom(line, col)
	}
}

func (p *Parser) scanString(line, col int) (token.Token, error) {
	p.pos++ // opening quote

	var sb strings.Builder

	for {
		if p.pos >= len(p.buf) {
			return token.Token{}, errIncomplete
		}

		r := p.buf[p.pos]

		switch r {
		case '"':
			p.pos++

			return token.Token{Kind: token.String, Literal: sb.String(), Line: line, Col: col}, nil
		case '\\':
			p.pos++
			if p.pos >= len(p.buf) {
				return token.Token{}, errIncomplete
			}

			sb.WriteRune(p.buf[p.pos])
			p.pos++
		default:
			sb.WriteRune(r)
			p.pos++
		}
	}
}

func (p *Parser) scanAtom(line, col int) (token.Token, error) {
	start := p.pos

	for p.pos < len(p.buf) && !isDelim(p.buf[p.pos]) {
		p.pos++
	}

	return token.Token{Kind: token.Atom, Literal: string(p.buf[start:p.pos]), Line: line, Col: col}, nil
}

func (p *Parser) parseExpr() (Val, error) {
	tok, err := p.nextToken()
	if err != nil {
		return Nil, err
	}

	switch tok.Kind {
	case token.LParen:
		return p.parseList()
	case token.LBrace:
		return p.parseMap()
	case token.RParen, token.RBrace:
		return Nil, ErrUnexpectedCloseParen.With(slog.Int("line", tok.Line), slog.Int("col", tok.Col))
	case token.Quote:
		inner, err := p.parseExpr()
		if err != nil {
			return Nil, err
		}

		return List(p.symGlobal("quote"), inner), nil
	case token.Backquote:
		p.bqDepth++
		inner, err := p.parseExpr()
		p.bqDepth--

		if err != nil {
			return Nil, err
		}

		return p.backquoteExpand(inner), nil
	case token.Comma:
		if p.bqDepth == 0 {
			return Nil, ErrUnquoteOutsideBackquote.With(slog.Int("line", tok.Line), slog.Int("col", tok.Col))
		}

		inner, err := p.parseExpr()
		if err != nil {
			return Nil, err
		}

		return List(p.symGlobal("unquote"), inner), nil
	case token.CommaAt:
		if p.bqDepth == 0 {
			return Nil, ErrUnquoteOutsideBackquote.With(slog.Int("line", tok.Line), slog.Int("col", tok.Col))
		}

		inner, err := p.parseExpr()
		if err != nil {
			return Nil, err
		}

		return List(p.symGlobal("unquote-splicing"), inner), nil
	case token.String:
		return Str(tok.Literal), nil
	case token.Atom:
		return p.parseAtom(tok.Literal)
	default:
		return Nil, errIncomplete
	}
}

func (p *Parser) parseList() (Val, error) {
	var items []Val

	for {
		save := p.pos

		tok, err := p.nextToken()
		if err != nil {
			return Nil, err
		}

		if tok.Kind == token.RParen {
			return List(items...), nil
		}

		if tok.Kind == token.Atom && tok.Literal == "." {
			tail, err := p.parseExpr()
			if err != nil {
				return Nil, err
			}

			closeTok, err := p.nextToken()
			if err != nil {
				return Nil, err
			}

			if closeTok.Kind != token.RParen {
				return Nil, ErrUnexpectedCloseParen.With(slog.Int("line", closeTok.Line), slog.Int("col", closeTok.Col))
			}

			return buildDotted(items, tail), nil
		}

		p.pos = save

		item, err := p.parseExpr()
		if err != nil {
			return Nil, err
		}

		items = append(items, item)
	}
}

func buildDotted(items []Val, tail Val) Val {
	result := tail
	for i := len(items) - 1; i >= 0; i-- {
		result = Cell(items[i], result)
	}

	return result
}

func (p *Parser) parseMap() (Val, error) {
	var kv []Val

	for {
		save := p.pos

		tok, err := p.nextToken()
		if err != nil {
			return Nil, err
		}

		if tok.Kind == token.RBrace {
			return MapValOf(NewMap(kv...)), nil
		}

		p.pos = save

		item, err := p.parseExpr()
		if err != nil {
			return Nil, err
		}

		kv = append(kv, item)
	}
}

func (p *Parser) parseAtom(lit string) (Val, error) {
	if lit == "#t" || lit == "#T" {
		return Bool(true), nil
	}

	if strings.HasPrefix(lit, "#") {
		return Bool(false), nil
	}

	if r := rune(lit[0]); r == '+' || r == '-' || unicode.IsDigit(r) {
		if v, ok := parseNumberLiteral(lit); ok {
			return v, nil
		}
	}

	return p.parseSymbol(lit)
}

func parseNumberLiteral(lit string) (Val, bool) {
	if !strings.ContainsRune(lit, '.') {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int64(i), true
		}
	}

	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return Float64(f), true
	}

	return Val{}, false
}

func (p *Parser) parseSymbol(lit string) (Val, error) {
	idx := strings.IndexByte(lit, ':')
	if idx < 0 {
		pkg := p.current
		if reservedGlobalSymbols[lit] {
			pkg = p.packages.Global
		}

		return SymVal(pkg.Intern(lit)), nil
	}

	prefix := lit[:idx]
	name := lit[idx+1:]

	pkg, err := p.resolvePackagePrefix(prefix)
	if err != nil {
		return Nil, err
	}

	return SymVal(pkg.Intern(name)), nil
}

// resolvePackagePrefix maps the text before a ':' to a package: an empty
// prefix (":foo") is the keywords package, "global" and "core" name the
// two other well-known packages, anything else must already exist.
func (p *Parser) resolvePackagePrefix(prefix string) (*Package, error) {
	switch prefix {
	case "":
		return p.packages.Keyword, nil
	case "global":
		return p.packages.Global, nil
	case "core":
		return p.packages.Core, nil
	default:
		if pkg, ok := p.packages.Find(prefix); ok {
			return pkg, nil
		}

		return nil, ErrUnknownPackagePrefix.With(slog.String("prefix", prefix))
	}
}

// backquoteExpand implements the backquote rewrite from spec section 4.1:
// an atom (including a dotted tail) becomes (quote x); a proper list
// becomes (append [a] [b] ...), collapsed to (list ...) when every
// bracketed element is a single-arg (list x) form.
func (p *Parser) backquoteExpand(form Val) Val {
	items, ok := ListToSlice(form)
	if form.Kind != KindCons || !ok {
		return List(p.symGlobal("quote"), form)
	}

	parts := make([]Val, len(items))
	for i, item := range items {
		parts[i] = p.bracket(item)
	}

	if collapsed, ok := p.collapseToList(parts); ok {
		return collapsed
	}

	return Cell(p.symGlobal("append"), SliceToList(parts))
}

// bracket expands one element of a backquoted list: "(, e)" -> "(list e)",
// "(,@ e)" -> "e", otherwise -> "(list <recursive backquote of x>)".
func (p *Parser) bracket(x Val) Val {
	if arg, ok := p.unaryForm(x, "unquote"); ok {
		return List(p.symGlobal("list"), arg)
	}

	if arg, ok := p.unaryForm(x, "unquote-splicing"); ok {
		return arg
	}

	return List(p.symGlobal("list"), p.backquoteExpand(x))
}

func (p *Parser) unaryForm(x Val, name string) (Val, bool) {
	items, ok := ListToSlice(x)
	if !ok || len(items) != 2 || items[0].Kind != KindSymbol {
		return Nil, false
	}

	if items[0].Symbol() != p.packages.Global.Intern(name) {
		return Nil, false
	}

	return items[1], true
}

// collapseToList implements the peephole pass: when every part is a
// single-arg (list x) form, rewrite (append (list a) (list b) ...) into
// the equivalent (list a b ...).
func (p *Parser) collapseToList(parts []Val) (Val, bool) {
	listSym := p.packages.Global.Intern("list")
	args := make([]Val, 0, len(parts))

	for _, part := range parts {
		items, ok := ListToSlice(part)
		if !ok || len(items) != 2 || items[0].Kind != KindSymbol || items[0].Symbol() != listSym {
			return Nil, false
		}

		args = append(args, items[1])
	}

	return Cell(p.symGlobal("list"), SliceToList(args)), true
}
