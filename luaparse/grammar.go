// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luaparse

import (
	"sync"

	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/internal/luaop"
	"zb.256lights.llc/lupin/internal/peg"
)

// grammar is the set of named rules for Lua 5.4.
// Rules are referenced by the builder to identify matches.
type grammar struct {
	chunk           *peg.Named
	block           *peg.Named
	statement       *peg.Named
	singleStatement *peg.Named
	emptyStat       *peg.Named
	localFunction   *peg.Named
	localDecl       *peg.Named
	attribName      *peg.Named
	functionDecl    *peg.Named
	funcName        *peg.Named
	ifStat          *peg.Named
	elseIfClause    *peg.Named
	elseClause      *peg.Named
	whileStat       *peg.Named
	numericFor      *peg.Named
	genericFor      *peg.Named
	repeatStat      *peg.Named
	doStat          *peg.Named
	breakStat       *peg.Named
	gotoStat        *peg.Named
	labelStat       *peg.Named
	assignStat      *peg.Named
	callStat        *peg.Named
	returnStat      *peg.Named

	expression       *peg.Named
	operand          *peg.Named
	unaryOp          *peg.Named
	binaryOp         *peg.Named
	simpleExpr       *peg.Named
	functionExpr     *peg.Named
	funcBody         *peg.Named
	paramList        *peg.Named
	suffixedExpr     *peg.Named
	primaryExpr      *peg.Named
	suffix           *peg.Named
	callArgs         *peg.Named
	tableConstructor *peg.Named
	field            *peg.Named
	fieldSep         *peg.Named
	exprList         *peg.Named
	nameList         *peg.Named
}

// luaGrammar returns the shared, immutable Lua grammar.
var luaGrammar = sync.OnceValue(newGrammar)

// Alternatives of the suffix rule.
const (
	suffixField = iota
	suffixIndex
	suffixMethod
	suffixCall
)

// Alternatives of the primary expression rule.
const (
	primaryName = iota
	primaryParen
)

func newGrammar() *grammar {
	g := new(peg.Grammar)
	r := &grammar{
		chunk:           g.Rule("Chunk"),
		block:           g.Rule("Block"),
		statement:       g.Rule("Statement").Label("statement").Nested(),
		singleStatement: g.Rule("SingleStatement"),
		emptyStat:       g.Rule("EmptyStat"),
		localFunction:   g.Rule("LocalFunction"),
		localDecl:       g.Rule("LocalDecl"),
		attribName:      g.Rule("AttribName"),
		functionDecl:    g.Rule("FunctionDecl"),
		funcName:        g.Rule("FuncName"),
		ifStat:          g.Rule("IfStat"),
		elseIfClause:    g.Rule("ElseIfClause"),
		elseClause:      g.Rule("ElseClause"),
		whileStat:       g.Rule("WhileStat"),
		numericFor:      g.Rule("NumericFor"),
		genericFor:      g.Rule("GenericFor"),
		repeatStat:      g.Rule("RepeatStat"),
		doStat:          g.Rule("DoStat"),
		breakStat:       g.Rule("BreakStat"),
		gotoStat:        g.Rule("GotoStat"),
		labelStat:       g.Rule("LabelStat"),
		assignStat:      g.Rule("AssignStat"),
		callStat:        g.Rule("CallStat"),
		returnStat:      g.Rule("ReturnStat"),

		expression:       g.Rule("Expression").Label("expression").Nested(),
		operand:          g.Rule("Operand").Label("expression"),
		unaryOp:          g.Rule("UnaryOp").Quiet(),
		binaryOp:         g.Rule("BinaryOp").Quiet(),
		simpleExpr:       g.Rule("SimpleExpr"),
		functionExpr:     g.Rule("FunctionExpr"),
		funcBody:         g.Rule("FuncBody"),
		paramList:        g.Rule("ParamList"),
		suffixedExpr:     g.Rule("SuffixedExpr"),
		primaryExpr:      g.Rule("PrimaryExpr"),
		suffix:           g.Rule("Suffix").Quiet(),
		callArgs:         g.Rule("CallArgs"),
		tableConstructor: g.Rule("TableConstructor"),
		field:            g.Rule("Field"),
		fieldSep:         g.Rule("FieldSep"),
		exprList:         g.Rule("ExprList"),
		nameList:         g.Rule("NameList"),
	}

	tok := peg.Token
	name := tok(lualex.IdentifierToken)

	// Blocks and statements.
	r.chunk.Define(r.block)
	r.block.Define(peg.Seq(
		peg.ZeroOrMore(r.statement),
		peg.Optional(r.returnStat),
	))
	r.statement.Define(peg.Choice(
		r.emptyStat,
		r.localFunction,
		r.localDecl,
		r.functionDecl,
		r.ifStat,
		r.whileStat,
		r.numericFor,
		r.genericFor,
		r.repeatStat,
		r.doStat,
		r.breakStat,
		r.gotoStat,
		r.labelStat,
		r.assignStat,
		r.callStat,
	))
	r.singleStatement.Define(peg.Seq(
		peg.ZeroOrMore(r.emptyStat),
		peg.Choice(r.statement, r.returnStat),
		peg.ZeroOrMore(r.emptyStat),
	))
	r.emptyStat.Define(tok(lualex.SemiToken))
	r.localFunction.Define(peg.Seq(
		tok(lualex.LocalToken), tok(lualex.FunctionToken), name, r.funcBody,
	))
	r.localDecl.Define(peg.Seq(
		tok(lualex.LocalToken),
		r.attribName,
		peg.ZeroOrMore(peg.Seq(tok(lualex.CommaToken), r.attribName)),
		peg.Optional(peg.Seq(tok(lualex.AssignToken), r.exprList)),
	))
	r.attribName.Define(peg.Seq(
		name,
		peg.Optional(peg.Seq(
			tok(lualex.LessToken),
			peg.Check(name, "'const' or 'close'", isAttrib),
			tok(lualex.GreaterToken),
		)),
	))
	r.functionDecl.Define(peg.Seq(tok(lualex.FunctionToken), r.funcName, r.funcBody))
	r.funcName.Define(peg.Seq(
		name,
		peg.ZeroOrMore(peg.Seq(tok(lualex.DotToken), name)),
		peg.Optional(peg.Seq(tok(lualex.ColonToken), name)),
	))
	r.ifStat.Define(peg.Seq(
		tok(lualex.IfToken), r.expression, tok(lualex.ThenToken), r.block,
		peg.ZeroOrMore(r.elseIfClause),
		peg.Optional(r.elseClause),
		tok(lualex.EndToken),
	))
	r.elseIfClause.Define(peg.Seq(
		tok(lualex.ElseifToken), r.expression, tok(lualex.ThenToken), r.block,
	))
	r.elseClause.Define(peg.Seq(tok(lualex.ElseToken), r.block))
	r.whileStat.Define(peg.Seq(
		tok(lualex.WhileToken), r.expression, tok(lualex.DoToken), r.block, tok(lualex.EndToken),
	))
	r.numericFor.Define(peg.Seq(
		tok(lualex.ForToken), name, tok(lualex.AssignToken),
		r.expression, tok(lualex.CommaToken), r.expression,
		peg.Optional(peg.Seq(tok(lualex.CommaToken), r.expression)),
		tok(lualex.DoToken), r.block, tok(lualex.EndToken),
	))
	r.genericFor.Define(peg.Seq(
		tok(lualex.ForToken), r.nameList, tok(lualex.InToken), r.exprList,
		tok(lualex.DoToken), r.block, tok(lualex.EndToken),
	))
	r.repeatStat.Define(peg.Seq(
		tok(lualex.RepeatToken), r.block, tok(lualex.UntilToken), r.expression,
	))
	r.doStat.Define(peg.Seq(tok(lualex.DoToken), r.block, tok(lualex.EndToken)))
	r.breakStat.Define(tok(lualex.BreakToken))
	r.gotoStat.Define(peg.Seq(tok(lualex.GotoToken), name))
	r.labelStat.Define(peg.Seq(tok(lualex.LabelToken), name, tok(lualex.LabelToken)))
	variable := peg.Check(r.suffixedExpr, "", isAssignable)
	r.assignStat.Define(peg.Seq(
		variable,
		peg.ZeroOrMore(peg.Seq(tok(lualex.CommaToken), variable)),
		tok(lualex.AssignToken),
		r.exprList,
	))
	r.callStat.Define(peg.Check(r.suffixedExpr, "", isCall))
	r.returnStat.Define(peg.Seq(
		tok(lualex.ReturnToken),
		peg.Optional(r.exprList),
		peg.Optional(tok(lualex.SemiToken)),
	))

	// Expressions.
	r.expression.Define(peg.Seq(
		r.operand,
		peg.ZeroOrMore(peg.Seq(r.binaryOp, r.operand)),
	))
	r.operand.Define(peg.Seq(peg.ZeroOrMore(r.unaryOp), r.simpleExpr))
	r.unaryOp.Define(tokenChoice(luaop.UnaryTokens()))
	r.binaryOp.Define(tokenChoice(luaop.BinaryTokens()))
	r.simpleExpr.Define(peg.Choice(
		tok(lualex.NumeralToken),
		tok(lualex.StringToken),
		tok(lualex.NilToken),
		tok(lualex.TrueToken),
		tok(lualex.FalseToken),
		tok(lualex.VarargToken),
		r.functionExpr,
		r.tableConstructor,
		r.suffixedExpr,
	))
	r.functionExpr.Define(peg.Seq(tok(lualex.FunctionToken), r.funcBody))
	r.funcBody.Define(peg.Seq(
		tok(lualex.LParenToken),
		peg.Optional(r.paramList),
		tok(lualex.RParenToken),
		r.block,
		tok(lualex.EndToken),
	))
	r.paramList.Define(peg.Choice(
		peg.Seq(
			name,
			peg.ZeroOrMore(peg.Seq(tok(lualex.CommaToken), name)),
			peg.Optional(peg.Seq(tok(lualex.CommaToken), tok(lualex.VarargToken))),
		),
		tok(lualex.VarargToken),
	))
	r.suffixedExpr.Define(peg.Seq(r.primaryExpr, peg.ZeroOrMore(r.suffix)))
	r.primaryExpr.Define(peg.Choice(
		name,
		peg.Seq(tok(lualex.LParenToken), r.expression, tok(lualex.RParenToken)),
	))
	r.suffix.Define(peg.Choice(
		peg.Seq(tok(lualex.DotToken), name),
		peg.Seq(tok(lualex.LBracketToken), r.expression, tok(lualex.RBracketToken)),
		peg.Seq(tok(lualex.ColonToken), name, r.callArgs),
		r.callArgs,
	))
	r.callArgs.Define(peg.Choice(
		peg.Seq(tok(lualex.LParenToken), peg.Optional(r.exprList), tok(lualex.RParenToken)),
		r.tableConstructor,
		tok(lualex.StringToken),
	))
	r.tableConstructor.Define(peg.Seq(
		tok(lualex.LBraceToken),
		peg.Optional(peg.Seq(
			r.field,
			peg.ZeroOrMore(peg.Seq(r.fieldSep, r.field)),
			peg.Optional(r.fieldSep),
		)),
		tok(lualex.RBraceToken),
	))
	r.field.Define(peg.Choice(
		peg.Seq(tok(lualex.LBracketToken), r.expression, tok(lualex.RBracketToken), tok(lualex.AssignToken), r.expression),
		peg.Seq(name, tok(lualex.AssignToken), r.expression),
		r.expression,
	))
	r.fieldSep.Define(peg.Choice(tok(lualex.CommaToken), tok(lualex.SemiToken)))
	r.exprList.Define(peg.Seq(r.expression, peg.ZeroOrMore(peg.Seq(tok(lualex.CommaToken), r.expression))))
	r.nameList.Define(peg.Seq(name, peg.ZeroOrMore(peg.Seq(tok(lualex.CommaToken), name))))

	return r
}

func tokenChoice(kinds []lualex.TokenKind) peg.Rule {
	alts := make([]peg.Rule, 0, len(kinds))
	for _, k := range kinds {
		alts = append(alts, peg.Token(k))
	}
	return peg.Choice(alts...)
}

func isAttrib(m *peg.Match) bool {
	return m.Token.Value == "const" || m.Token.Value == "close"
}

// lastSuffix returns the final suffix of a SuffixedExpr match
// or nil if it has none.
func lastSuffix(m *peg.Match) *peg.Match {
	suffixes := m.Children[1].Children
	if len(suffixes) == 0 {
		return nil
	}
	return suffixes[len(suffixes)-1]
}

// isAssignable reports whether a SuffixedExpr match can be assigned to:
// a name or an indexing expression.
func isAssignable(m *peg.Match) bool {
	last := lastSuffix(m)
	if last == nil {
		return m.Children[0].Alt == primaryName
	}
	return last.Alt == suffixField || last.Alt == suffixIndex
}

// isCall reports whether a SuffixedExpr match is a function or method call.
func isCall(m *peg.Match) bool {
	last := lastSuffix(m)
	return last != nil && (last.Alt == suffixMethod || last.Alt == suffixCall)
}
