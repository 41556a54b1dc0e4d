/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package enricher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/genai"
)

const knowledge = "Authors write books. The email is used for royalty statements."

func fieldNamed(name string) interface{} {
	return mock.MatchedBy(func(f genai.FieldInfo) bool { return f.Column == name })
}

func TestAnnotate(t *testing.T) {
	m := &MockCatalog{}
	expectTable(m, "authors", authorsTable)

	llm := &MockLLMClient{}
	llm.On("GenerateFieldDescription", mock.Anything, fieldNamed("email"), knowledge).
		Return("Address royalty statements are sent to.", nil)
	llm.On("GenerateFieldDescription", mock.Anything, fieldNamed("bio"), knowledge).
		Return("", errors.New("quota exceeded"))
	llm.On("GenerateFieldDescription", mock.Anything, fieldNamed("name"), knowledge).
		Return("", nil)

	svc := NewService(m, llm, config.IntrospectionConfig{MaxDepth: 1, MaxConcurrentReads: 2}, zap.NewNop())
	ts, err := svc.GetEnhancedSchema(context.Background(), "authors")
	require.NoError(t, err)

	svc.Annotate(context.Background(), ts, []string{"email", "bio", "name"}, knowledge)

	assert.Equal(t, "Address royalty statements are sent to.", ts.Column("email").Description)
	assert.Empty(t, ts.Column("bio").Description)
	assert.Empty(t, ts.Column("name").Description)
	assert.Empty(t, ts.Column("id").Description)
	llm.AssertNumberOfCalls(t, "GenerateFieldDescription", 3)
	llm.AssertCalled(t, "GenerateFieldDescription", mock.Anything, genai.FieldInfo{
		Table:    "authors",
		Column:   "email",
		DataType: "character varying",
		Kind:     "email",
		Values:   []string{},
	}, knowledge)
}

func TestAnnotateWithoutClientOrContext(t *testing.T) {
	m := &MockCatalog{}
	expectTable(m, "authors", authorsTable)

	svc := newTestService(m, 1)
	ts, err := svc.GetEnhancedSchema(context.Background(), "authors")
	require.NoError(t, err)
	svc.Annotate(context.Background(), ts, nil, knowledge)
	for _, c := range ts.Columns {
		assert.Empty(t, c.Description)
	}

	llm := &MockLLMClient{}
	withLLM := NewService(m, llm, config.IntrospectionConfig{MaxDepth: 1, MaxConcurrentReads: 1}, zap.NewNop())
	withLLM.Annotate(context.Background(), ts, nil, "")
	withLLM.Annotate(context.Background(), nil, nil, knowledge)
	llm.AssertNotCalled(t, "GenerateFieldDescription", mock.Anything, mock.Anything, mock.Anything)
}
