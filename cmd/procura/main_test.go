package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura-backend/internal/assistant"
	"procura-backend/internal/catalog"
	"procura-backend/internal/modules"
)

func newTestREPL(out *bytes.Buffer) *repl {
	cat := catalog.Default()
	return &repl{
		engine:   assistant.NewEngine(assistant.EngineOptions{Catalog: cat, MaxCustom: 10}),
		renderer: modules.NewRenderer(cat),
		session:  assistant.NewSession("terminal"),
		out:      out,
	}
}

func TestREPLConversation(t *testing.T) {
	var out bytes.Buffer
	r := newTestREPL(&out)
	input := strings.Join([]string{
		"show top GMP suppliers",
		"create an rfq",
		"5000 units",
		"/drop call Atlas about lead times",
		"/actions",
		"/quit",
		"never reached",
	}, "\n")
	require.NoError(t, r.run(context.Background(), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "[supplier_search]")
	assert.Contains(t, text, "Nordic BioSupply")
	assert.Contains(t, text, "[rfq_create]")
	assert.Contains(t, text, "call Atlas about lead times")
	assert.NotContains(t, text, "never reached")

	require.NotNil(t, r.session.Context)
	assert.Equal(t, 2, r.session.Context.Step)
	assert.Len(t, r.session.Custom, 1)
}

func TestREPLResetAndModule(t *testing.T) {
	var out bytes.Buffer
	r := newTestREPL(&out)
	input := "start an rfq\n/reset\n/module inventory\n/drop   \n"
	require.NoError(t, r.run(context.Background(), strings.NewReader(input)))

	assert.Nil(t, r.session.Context)
	assert.Empty(t, r.session.Messages)
	assert.Contains(t, out.String(), `"type": "inventory"`)
	assert.Contains(t, out.String(), "nothing to add")
}
