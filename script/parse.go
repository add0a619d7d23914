package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/wippyai/win32emu/errors"
)

// Op is the statement kind.
type Op uint8

const (
	OpCall Op = iota // API invocation
	OpLet            // name = value
	OpDump           // dump ADDR N
	OpU32            // u32 ADDR
)

// ArgKind tags an Arg.
type ArgKind uint8

const (
	ArgInt ArgKind = iota
	ArgConst
	ArgVar
	ArgString
	ArgBuffer
)

// Arg is one unresolved script argument.
type Arg struct {
	Name string // constant or variable name
	Str  string
	Int  uint64 // integer value or buffer size
	Kind ArgKind
}

func (a Arg) String() string {
	switch a.Kind {
	case ArgConst:
		return a.Name
	case ArgVar:
		return "$" + a.Name
	case ArgString:
		return strconv.Quote(a.Str)
	case ArgBuffer:
		return fmt.Sprintf("buf:%d", a.Int)
	default:
		return fmt.Sprintf("%#x", a.Int)
	}
}

// Stmt is one parsed line.
type Stmt struct {
	Assign string
	API    string
	Args   []Arg
	Line   int
	Op     Op
}

// Parse reads a script. Blank lines and comments are skipped.
func Parse(r io.Reader) ([]Stmt, error) {
	var out []Stmt
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		stmt, ok, err := ParseLine(line, sc.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, stmt)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "read script")
	}
	return out, nil
}

// ParseLine parses a single line. ok is false for blank and comment lines.
func ParseLine(line int, text string) (stmt Stmt, ok bool, err error) {
	toks, err := tokenize(text)
	if err != nil {
		return Stmt{}, false, errors.ParseFailed(line, err.Error())
	}
	if len(toks) == 0 {
		return Stmt{}, false, nil
	}

	stmt.Line = line
	if len(toks) >= 2 && toks[1] == "=" {
		if !isIdent(toks[0]) {
			return Stmt{}, false, errors.ParseFailed(line, fmt.Sprintf("invalid variable name %q", toks[0]))
		}
		stmt.Assign = toks[0]
		toks = toks[2:]
		if len(toks) == 0 {
			return Stmt{}, false, errors.ParseFailed(line, "missing value after '='")
		}
	}

	head := toks[0]
	rest := toks[1:]
	switch {
	case head == "dump" || head == "u32":
		want := 2
		stmt.Op = OpDump
		if head == "u32" {
			want = 1
			stmt.Op = OpU32
		}
		if stmt.Assign != "" {
			return Stmt{}, false, errors.ParseFailed(line, head+" cannot be assigned")
		}
		if len(rest) != want {
			return Stmt{}, false, errors.ParseFailed(line, fmt.Sprintf("%s takes %d arguments", head, want))
		}
	case isIdent(head) && !isConstName(head):
		stmt.Op = OpCall
		stmt.API = head
	default:
		if stmt.Assign == "" || len(rest) != 0 {
			return Stmt{}, false, errors.ParseFailed(line, fmt.Sprintf("expected API name, got %q", head))
		}
		stmt.Op = OpLet
		rest = toks
	}

	for _, tok := range rest {
		arg, err := parseArg(tok)
		if err != nil {
			return Stmt{}, false, errors.ParseFailed(line, err.Error())
		}
		stmt.Args = append(stmt.Args, arg)
	}
	return stmt, true, nil
}

func parseArg(tok string) (Arg, error) {
	switch {
	case strings.HasPrefix(tok, `"`):
		return Arg{Kind: ArgString, Str: unquote(tok)}, nil
	case strings.HasPrefix(tok, "$"):
		if !isIdent(tok[1:]) {
			return Arg{}, fmt.Errorf("bad variable %q", tok)
		}
		return Arg{Kind: ArgVar, Name: tok[1:]}, nil
	case strings.HasPrefix(tok, "buf:"):
		n, err := strconv.ParseUint(tok[4:], 0, 32)
		if err != nil {
			return Arg{}, fmt.Errorf("bad buffer size %q", tok)
		}
		return Arg{Kind: ArgBuffer, Int: n}, nil
	case isConstName(tok):
		return Arg{Kind: ArgConst, Name: tok}, nil
	}

	if strings.HasPrefix(tok, "-") {
		v, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return Arg{}, fmt.Errorf("bad integer %q", tok)
		}
		return Arg{Kind: ArgInt, Int: uint64(v)}, nil
	}
	v, err := strconv.ParseUint(tok, 0, 64)
	if err != nil {
		return Arg{}, fmt.Errorf("bad argument %q", tok)
	}
	return Arg{Kind: ArgInt, Int: v}, nil
}

// tokenize splits on whitespace, keeping quoted strings (with escapes) as
// single tokens and dropping everything after an unquoted '#'.
func tokenize(text string) ([]string, error) {
	var (
		toks []string
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '#':
			flush()
			return toks, nil
		case c == '"':
			flush()
			j := i + 1
			for ; j < len(text); j++ {
				if text[j] == '\\' {
					j++
					continue
				}
				if text[j] == '"' {
					break
				}
			}
			if j >= len(text) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, text[i:j+1])
			i = j
		case c == '=':
			flush()
			toks = append(toks, "=")
		case unicode.IsSpace(rune(c)):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return toks, nil
}

// unquote strips the quotes from a token produced by tokenize. Only \",
// \\, \n, \t, \r and \0 are escapes; any other backslash is kept so Windows
// paths need no doubling.
func unquote(tok string) string {
	body := tok[1 : len(tok)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		switch body[i+1] {
		case '"', '\\':
			b.WriteByte(body[i+1])
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// isConstName matches upper-case constant names such as GENERIC_READ. API
// names are mixed case.
func isConstName(s string) bool {
	if !isIdent(s) {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
