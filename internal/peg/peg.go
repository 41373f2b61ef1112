// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package peg provides a parsing expression grammar engine
// that operates on a slice of [lualex.Token] values.
//
// Grammars are built from combinators ([Token], [Seq], [Choice], [ZeroOrMore],
// [OneOrMore], [Optional], and [Check]) and from named rules
// created with [Grammar.Rule].
// Named rules may reference each other recursively
// and their results are memoized per token position,
// so matching runs in time linear in the number of (rule, position) pairs.
package peg

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"zb.256lights.llc/lupin/internal/lualex"
)

// DefaultMaxDepth is the nesting limit used when [Options.MaxDepth] is zero.
const DefaultMaxDepth = 200

// A Rule matches a sequence of tokens.
// The set of rules is closed:
// rules are created with the functions in this package.
type Rule interface {
	match(p *parser, pos int) (*Match, bool)
}

// Kind is the type of a [Match].
type Kind int

// [Kind] values.
const (
	TokenMatch Kind = iota
	SeqMatch
	ChoiceMatch
	RepeatMatch
	OptionalMatch
	CheckMatch
)

// A Match is the result of successfully applying a [Rule].
type Match struct {
	// Rule is the named rule that produced this match
	// or nil if the match came from an anonymous combinator.
	Rule *Named
	Kind Kind
	// Start and End are the token index range [Start, End) of the match.
	Start int
	End   int
	// Token is the matched token for a [TokenMatch].
	Token lualex.Token
	// Alt is the index of the chosen alternative for a [ChoiceMatch].
	Alt int
	// Children holds the sub-matches in order.
	// A [ChoiceMatch] or a [CheckMatch] has exactly one child.
	// An [OptionalMatch] has zero or one children.
	Children []*Match
}

// Chosen returns the single child of a [ChoiceMatch] or [CheckMatch].
func (m *Match) Chosen() *Match {
	if len(m.Children) != 1 {
		panic("peg: Chosen called on match without exactly one child")
	}
	return m.Children[0]
}

// Is reports whether m was produced by the named rule r.
func (m *Match) Is(r *Named) bool {
	return m != nil && m.Rule == r
}

// Empty reports whether the match consumed no tokens.
func (m *Match) Empty() bool {
	return m.Start == m.End
}

// String formats the match as an s-expression of named rules and tokens.
func (m *Match) String() string {
	sb := new(strings.Builder)
	m.format(sb)
	return sb.String()
}

func (m *Match) format(sb *strings.Builder) {
	if m.Rule != nil {
		sb.WriteString("(")
		sb.WriteString(m.Rule.name)
	}
	first := m.Rule == nil
	if m.Kind == TokenMatch {
		if !first {
			sb.WriteString(" ")
		}
		sb.WriteString(m.Token.String())
		first = false
	}
	for _, c := range m.Children {
		if c.Empty() && c.Rule == nil {
			continue
		}
		if !first {
			sb.WriteString(" ")
		}
		c.format(sb)
		first = false
	}
	if m.Rule != nil {
		sb.WriteString(")")
	}
}

// Token returns a [Rule] that matches a single token of the given kind.
func Token(kind lualex.TokenKind) Rule {
	return tokenRule{kind, Describe(kind)}
}

type tokenRule struct {
	kind lualex.TokenKind
	desc string
}

func (r tokenRule) match(p *parser, pos int) (*Match, bool) {
	if pos >= len(p.tokens) || p.tokens[pos].Kind != r.kind {
		p.expect(pos, r.desc)
		return nil, false
	}
	return &Match{
		Kind:  TokenMatch,
		Start: pos,
		End:   pos + 1,
		Token: p.tokens[pos],
	}, true
}

// Describe returns the description used for a token kind in expected lists.
// Keywords and punctuation are quoted, and classes like "<name>" are not.
func Describe(kind lualex.TokenKind) string {
	s := kind.String()
	if strings.HasPrefix(s, "<") {
		return s
	}
	return "'" + s + "'"
}

// Seq returns a [Rule] that matches each of rules in order.
func Seq(rules ...Rule) Rule {
	return seqRule(rules)
}

type seqRule []Rule

func (r seqRule) match(p *parser, pos int) (*Match, bool) {
	m := &Match{
		Kind:     SeqMatch,
		Start:    pos,
		End:      pos,
		Children: make([]*Match, 0, len(r)),
	}
	for _, sub := range r {
		c, ok := sub.match(p, m.End)
		if !ok {
			return nil, false
		}
		m.Children = append(m.Children, c)
		m.End = c.End
	}
	return m, true
}

// Choice returns a [Rule] that tries each of rules in order
// and succeeds with the first one that matches.
func Choice(rules ...Rule) Rule {
	return choiceRule(rules)
}

type choiceRule []Rule

func (r choiceRule) match(p *parser, pos int) (*Match, bool) {
	for i, alt := range r {
		c, ok := alt.match(p, pos)
		if ok {
			return &Match{
				Kind:     ChoiceMatch,
				Start:    pos,
				End:      c.End,
				Alt:      i,
				Children: []*Match{c},
			}, true
		}
	}
	return nil, false
}

// ZeroOrMore returns a [Rule] that matches r as many times as possible.
// It never fails.
func ZeroOrMore(r Rule) Rule {
	return repeatRule{r, 0}
}

// OneOrMore returns a [Rule] that matches r as many times as possible,
// failing if r does not match at least once.
func OneOrMore(r Rule) Rule {
	return repeatRule{r, 1}
}

type repeatRule struct {
	r   Rule
	min int
}

func (r repeatRule) match(p *parser, pos int) (*Match, bool) {
	m := &Match{
		Kind:  RepeatMatch,
		Start: pos,
		End:   pos,
	}
	for {
		c, ok := r.r.match(p, m.End)
		if !ok {
			break
		}
		m.Children = append(m.Children, c)
		if c.End == m.End {
			// An empty match would repeat forever.
			break
		}
		m.End = c.End
	}
	if len(m.Children) < r.min {
		return nil, false
	}
	return m, true
}

// Optional returns a [Rule] that matches r or nothing.
// It never fails.
func Optional(r Rule) Rule {
	return optionalRule{r}
}

type optionalRule struct {
	r Rule
}

func (r optionalRule) match(p *parser, pos int) (*Match, bool) {
	m := &Match{
		Kind:  OptionalMatch,
		Start: pos,
		End:   pos,
	}
	if c, ok := r.r.match(p, pos); ok {
		m.Children = []*Match{c}
		m.End = c.End
	}
	return m, true
}

// Check returns a [Rule] that matches r
// and then succeeds only if pred reports true for r's match.
// If pred rejects the match, expected is recorded
// at the start of the match as the reason for the failure.
// An empty expected records nothing.
func Check(r Rule, expected string, pred func(*Match) bool) Rule {
	return checkRule{r, expected, pred}
}

type checkRule struct {
	r        Rule
	expected string
	pred     func(*Match) bool
}

func (r checkRule) match(p *parser, pos int) (*Match, bool) {
	c, ok := r.r.match(p, pos)
	if !ok {
		return nil, false
	}
	if !r.pred(c) {
		if r.expected != "" {
			p.expect(pos, r.expected)
		}
		return nil, false
	}
	return &Match{
		Kind:     CheckMatch,
		Start:    pos,
		End:      c.End,
		Children: []*Match{c},
	}, true
}

// A Grammar is a set of named rules.
type Grammar struct {
	rules []*Named
}

// Rule returns a new named rule in the grammar.
// The rule must be given a body with [Named.Define] before it is matched.
func (g *Grammar) Rule(name string) *Named {
	r := &Named{id: len(g.rules), name: name}
	g.rules = append(g.rules, r)
	return r
}

// Named is a [Rule] created by [Grammar.Rule].
type Named struct {
	id     int
	name   string
	body   Rule
	label  string
	quiet  bool
	nested bool
}

// Name returns the rule's name.
func (r *Named) Name() string {
	return r.name
}

func (r *Named) String() string {
	return r.name
}

// Define sets the rule's body and returns r.
func (r *Named) Define(body Rule) *Named {
	if r.body != nil {
		panic("peg: rule " + r.name + " defined twice")
	}
	r.body = body
	return r
}

// Label causes a failure of r that does not get past its first token
// to be reported as a single expectation of label.
func (r *Named) Label(label string) *Named {
	r.label = label
	return r
}

// Quiet causes a failure of r that does not get past its first token
// to be omitted from the expected list.
func (r *Named) Quiet() *Named {
	r.quiet = true
	return r
}

// Nested marks r as counting toward the nesting depth limit.
func (r *Named) Nested() *Named {
	r.nested = true
	return r
}

func (r *Named) match(p *parser, pos int) (*Match, bool) {
	for _, e := range p.memo[pos] {
		if e.rule == r.id {
			return e.m, e.ok
		}
	}
	if r.body == nil {
		panic("peg: rule " + r.name + " has no definition")
	}
	if r.nested {
		p.depth++
		if p.depth > p.maxDepth {
			panic(bailout{&DepthError{Pos: pos, Max: p.maxDepth}})
		}
		defer func() { p.depth-- }()
	}

	farthest, nexpected := p.farthest, len(p.expected)
	p.frames = append(p.frames, Frame{Rule: r, Start: pos})
	m, ok := r.body.match(p, pos)
	p.frames = p.frames[:len(p.frames)-1]

	if !ok && (r.label != "" || r.quiet) && p.farthest == pos {
		if farthest == pos {
			p.expected = p.expected[:nexpected]
		} else {
			p.expected = p.expected[:0]
		}
		if r.label != "" {
			p.expect(pos, r.label)
		}
	}
	if ok {
		named := *m
		named.Rule = r
		m = &named
	}
	p.memo[pos] = append(p.memo[pos], memoEntry{r.id, m, ok})
	return m, ok
}

// Options is the set of optional parameters to [Parse].
type Options struct {
	// MaxDepth is the maximum number of nested rules
	// (as marked by [Named.Nested]) that may be active at once.
	// Zero means [DefaultMaxDepth].
	MaxDepth int
}

// Parse matches start against tokens.
// tokens must end with a token of kind [lualex.EOFToken],
// and start must match every token before it.
// If the tokens do not match, Parse returns a [*Failure].
// If the nesting limit is exceeded, Parse returns a [*DepthError].
func Parse(start Rule, tokens []lualex.Token, opts *Options) (_ *Match, err error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != lualex.EOFToken {
		return nil, errors.New("peg: token stream must end with EOF")
	}
	p := &parser{
		tokens:   tokens,
		memo:     make([][]memoEntry, len(tokens)+1),
		maxDepth: DefaultMaxDepth,
	}
	if opts != nil && opts.MaxDepth > 0 {
		p.maxDepth = opts.MaxDepth
	}
	defer func() {
		if x := recover(); x != nil {
			b, ok := x.(bailout)
			if !ok {
				panic(x)
			}
			err = b.err
		}
	}()

	m, ok := Seq(start, Token(lualex.EOFToken)).match(p, 0)
	if !ok {
		return nil, p.failure()
	}
	return m.Children[0], nil
}

// Failure is the error returned by [Parse] when the tokens do not match.
// It describes the furthest token position that any rule reached.
type Failure struct {
	// Pos is the index of the token where matching could not continue.
	Pos int
	// Expected is the list of token and rule descriptions
	// that would have allowed matching to continue at Pos.
	Expected []string
	// Rule is the innermost named rule
	// that had matched at least one token before Pos,
	// or nil if the failure is at the first token.
	Rule *Named
	// RuleStart is the index of the first token of Rule.
	RuleStart int
	// Frames lists the rules that had started before Pos
	// and were still matching when an expectation was recorded,
	// innermost (greatest start) first.
	// Frames[0] is Rule if Rule is not nil.
	Frames []Frame
}

// Frame is an application of a named rule.
type Frame struct {
	Rule  *Named
	Start int
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("syntax error at token %d", f.Pos)
	if len(f.Expected) > 0 {
		msg += ": expected " + strings.Join(f.Expected, ", ")
	}
	if f.Rule != nil {
		msg += fmt.Sprintf(" (in %s starting at token %d)", f.Rule.name, f.RuleStart)
	}
	return msg
}

// DepthError is the error returned by [Parse]
// when rules are nested beyond the configured limit.
type DepthError struct {
	// Pos is the index of the token where the limit was exceeded.
	Pos int
	Max int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("nesting depth exceeds %d at token %d", e.Max, e.Pos)
}

type parser struct {
	tokens   []lualex.Token
	// memo holds the results of named rules, indexed by token position.
	memo     [][]memoEntry
	depth    int
	maxDepth int

	frames   []Frame
	farthest int
	expected []expectation
}

type memoEntry struct {
	rule int
	m    *Match
	ok   bool
}

type expectation struct {
	desc string
	// frames is the stack of rules that started before the expectation's position,
	// outermost first.
	frames []Frame
}

type bailout struct {
	err error
}

// expect records that desc would have matched at pos.
func (p *parser) expect(pos int, desc string) {
	if pos < p.farthest {
		return
	}
	if pos > p.farthest {
		p.farthest = pos
		p.expected = p.expected[:0]
	}
	// Rules start no earlier than the rule that invoked them,
	// so the frames that started before pos are a prefix of the stack.
	n := len(p.frames)
	for n > 0 && p.frames[n-1].Start >= pos {
		n--
	}
	frames := p.frames[:n]
	if k := len(p.expected); k > 0 && slices.Equal(p.expected[k-1].frames, frames) {
		// Same stack as the previous expectation.
		frames = p.expected[k-1].frames
	} else {
		frames = slices.Clone(frames)
	}
	p.expected = append(p.expected, expectation{desc, frames})
}

func (p *parser) failure() *Failure {
	f := &Failure{Pos: p.farthest}
	seen := make(map[string]struct{})
	for _, e := range p.expected {
		if _, dup := seen[e.desc]; !dup {
			seen[e.desc] = struct{}{}
			f.Expected = append(f.Expected, e.desc)
		}
		for i := len(e.frames) - 1; i >= 0; i-- {
			if !slices.Contains(f.Frames, e.frames[i]) {
				f.Frames = append(f.Frames, e.frames[i])
			}
		}
	}
	slices.SortStableFunc(f.Frames, func(a, b Frame) int {
		return cmp.Compare(b.Start, a.Start)
	})
	if len(f.Frames) > 0 {
		f.Rule = f.Frames[0].Rule
		f.RuleStart = f.Frames[0].Start
	}
	return f
}
