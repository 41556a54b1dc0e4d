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
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultModel = "gemini-1.5-flash-latest"

// geminiClient implements the LLMClient interface using the Google Gemini API.
type geminiClient struct {
	client *genai.Client
	cfg    Config
}

// FieldInfo is what the model is told about a column.
type FieldInfo struct {
	Table    string
	Column   string
	DataType string
	Kind     string
	Values   []string
}

// LLMClient defines the interface for interacting with a generative AI model.
type LLMClient interface {
	// GenerateFieldDescription describes a column using only knowledgeContext.
	// It returns "" when the context says nothing about the column.
	GenerateFieldDescription(ctx context.Context, field FieldInfo, knowledgeContext string) (string, error)

	// IsAPIKeyValid checks if the configured API key is functional.
	IsAPIKeyValid(ctx context.Context) error

	// Close cleans up any resources used by the client.
	Close() error
}

// Config holds configuration for the GenAI client.
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
		zap.L().Info("gemini model not specified, using default", zap.String("model", cfg.Model))
	}

	return &geminiClient{
		client: client,
		cfg:    cfg,
	}, nil
}

// Close cleans up the underlying Gemini client.
func (c *geminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks if the Gemini API key is valid by listing models.
func (c *geminiClient) IsAPIKeyValid(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("gemini client not initialized (likely missing API key)")
	}

	_, err := c.client.ListModels(ctx).Next()
	if err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

// GenerateFieldDescription generates a column description using the Gemini API.
func (c *geminiClient) GenerateFieldDescription(ctx context.Context, field FieldInfo, knowledgeContext string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}
	if knowledgeContext == "" {
		return "", nil
	}

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(150)
	model.SetTopP(0.9)
	model.SetTopK(40)

	resp, err := model.GenerateContent(ctx, genai.Text(buildFieldPrompt(field, knowledgeContext)))
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	text, err := getFirstTextPart(resp)
	if err != nil {
		zap.L().Warn("could not read gemini response",
			zap.String("table", field.Table), zap.String("column", field.Column), zap.Error(err))
		return "", nil
	}
	description, found := extractContentBetween(text, "<result>", "</result>")
	if !found {
		zap.L().Warn("gemini response has no result tags",
			zap.String("table", field.Table), zap.String("column", field.Column))
		return "", nil
	}
	return description, nil
}

func buildFieldPrompt(field FieldInfo, knowledgeContext string) string {
	var facts strings.Builder
	fmt.Fprintf(&facts, "- Table: %s\n- Column: %s\n- Data Type: %s\n- Semantic Kind: %s\n", field.Table, field.Column, field.DataType, field.Kind)
	if len(field.Values) > 0 {
		fmt.Fprintf(&facts, "- Allowed Values: [%s]\n", strings.Join(field.Values, ", "))
	}

	return fmt.Sprintf(`
	Your task is to generate a brief and concise description for a database column based ONLY on the provided knowledge context.

	********** Knowledge Context **********
	%s
	********** End Knowledge Context **********

	**Column Information:**
	%s
	**Instructions:**
	1. Analyze the Knowledge Context carefully.
	2. Determine if the context provides any relevant information SPECIFICALLY about the column '%s' within the table '%s'.
	3. If relevant information is found, generate a concise description (max 50 words). Output ONLY the description text within <result></result> tags.
	4. If NO relevant information about THIS SPECIFIC column is found in the context, output empty <result></result> tags. Do NOT invent descriptions or use general knowledge.

	Begin analysis and provide description if applicable:
	`, knowledgeContext, facts.String(), field.Column, field.Table)
}

// getFirstTextPart extracts the first text part from a Gemini response.
func getFirstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		safetyRatings := "none"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
			if resp.Candidates[0].SafetyRatings != nil {
				safetyRatings = fmt.Sprintf("%v", resp.Candidates[0].SafetyRatings)
			}
		}
		return "", fmt.Errorf("empty or incomplete response from Gemini API. FinishReason: %s, SafetyRatings: %s", finishReason, safetyRatings)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}

// extractContentBetween extracts content between start and end tags from a string.
func extractContentBetween(text, startTag, endTag string) (string, bool) {
	startIndex := strings.Index(text, startTag)
	if startIndex == -1 {
		return "", false
	}
	startIndex += len(startTag)
	endIndex := strings.Index(text[startIndex:], endTag)
	if endIndex == -1 {
		return "", false
	}
	return strings.TrimSpace(text[startIndex : startIndex+endIndex]), true
}
