package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexAllKeywordsAndSymbols(t *testing.T) {
	toks, err := LexAll(`func main() -> int { return 0; }`)
	require.NoError(t, err)
	var kinds []Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, []Kind{
		KwFunc, Ident, LParen, RParen, Arrow, Ident, LBrace,
		KwReturn, IntLit, Semi, RBrace, EOF,
	}, kinds)
}

func TestLexAllStringEscapes(t *testing.T) {
	toks, err := LexAll(`"Hi\n"`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, StringLit, toks[0].Kind)
	assert.Equal(t, "Hi\n", toks[0].Lexeme)
}

func TestLexAllCompoundOperators(t *testing.T) {
	toks, err := LexAll(`a += b; c->d; e<-f; g++; h--;`)
	require.NoError(t, err)
	var kinds []Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Contains(t, kinds, PlusEq)
	assert.Contains(t, kinds, Arrow)
	assert.Contains(t, kinds, LArrow)
	assert.Contains(t, kinds, PlusPlus)
	assert.Contains(t, kinds, MinusMinus)
}

func TestLexAllLineTracking(t *testing.T) {
	toks, err := LexAll("var x:int = 1;\nvar y:int = 2;")
	require.NoError(t, err)
	var secondVar Token
	found := 0
	for _, tk := range toks {
		if tk.Kind == KwVar {
			found++
			if found == 2 {
				secondVar = tk
			}
		}
	}
	assert.Equal(t, 2, secondVar.Line)
}

func TestLexAllUnterminatedString(t *testing.T) {
	_, err := LexAll(`"unterminated`)
	require.Error(t, err)
}
