package density

import (
	"math/big"
	"strings"
	"text/scanner"

	"github.com/pilosa/zigtools/bigmath"
	"github.com/pkg/errors"
)

// node is one vertex of a compiled expression tree.
type node interface {
	eval(x *big.Float) (*big.Float, error)
}

type (
	literal  struct{ r *big.Rat }
	variable struct{}
	constant struct{ fn func(prec uint) *big.Float }
	negate   struct{ x node }
	binary   struct {
		op   rune
		l, r node
	}
	call struct {
		name string
		fn   *function
		args []node
	}
)

// parser is a recursive descent parser over the token list:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ ("**" | "^") unary ]
//	primary = number | name | name "(" [ expr { "," expr } ] ")" | "(" expr ")"
type parser struct {
	toks []token
	pos  int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != scanner.EOF {
		return nil, errors.Wrapf(ErrSyntax, "unexpected %s", tok)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != scanner.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind rune) error {
	if tok := p.next(); tok.kind != kind {
		return errors.Wrapf(ErrSyntax, "expected %q, found %s", string(kind), tok)
	}
	return nil
}

func (p *parser) expr() (node, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for op := p.peek().kind; op == '+' || op == '-'; op = p.peek().kind {
		p.next()
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		l = binary{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) term() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for op := p.peek().kind; op == '*' || op == '/'; op = p.peek().kind {
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binary{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) unary() (node, error) {
	switch p.peek().kind {
	case '+':
		p.next()
		return p.unary()
	case '-':
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negate{x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return binary{op: tokPow, l: base, r: exp}, nil
}

func (p *parser) primary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case scanner.Int, scanner.Float:
		r, ok := new(big.Rat).SetString(strings.Replace(tok.text, "_", "", -1))
		if !ok {
			return nil, errors.Wrapf(ErrSyntax, "malformed number %s", tok)
		}
		return literal{r: r}, nil
	case '(':
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		return n, p.expect(')')
	case scanner.Ident:
		if p.peek().kind == '(' {
			p.next()
			return p.call(tok)
		}
		switch tok.text {
		case "x":
			return variable{}, nil
		case "pi":
			return constant{fn: bigmath.Pi}, nil
		case "e":
			return constant{fn: bigmath.E}, nil
		}
		return nil, errors.Wrapf(ErrSyntax, "unknown name %s", tok)
	}
	return nil, errors.Wrapf(ErrSyntax, "unexpected %s", tok)
}

func (p *parser) call(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, errors.Wrapf(ErrSyntax, "unknown function %s", name)
	}
	var args []node
	if p.peek().kind == ')' {
		p.next()
	} else {
		for {
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind == ',' {
				p.next()
				continue
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, errors.Wrapf(ErrSyntax, "%s takes %s, got %d", name.text, fn.arity(), len(args))
	}
	return call{name: name.text, fn: fn, args: args}, nil
}
