package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// ChatResponder sends a prompt through an eino chat model graph.
type ChatResponder struct {
	runner compose.Runnable[string, string]
}

var _ contractx.Responder = (*ChatResponder)(nil)

func NewChatResponder(ctx context.Context, chatModel einomodel.BaseChatModel, graphName string) (*ChatResponder, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	runner, err := compileResponderGraph(ctx, chatModel, graphName)
	if err != nil {
		return nil, fmt.Errorf("%w: compile responder graph: %v", contractx.ErrModelInvoke, err)
	}
	return &ChatResponder{runner: runner}, nil
}

func (r *ChatResponder) Respond(ctx context.Context, prompt string) (string, error) {
	out, err := r.runner.Invoke(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func compileResponderGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	graphName string,
) (compose.Runnable[string, string], error) {
	graph := compose.NewGraph[string, string]()

	if err := graph.AddLambdaNode("to_messages",
		compose.InvokableLambda(func(ctx context.Context, prompt string) ([]*schema.Message, error) {
			return []*schema.Message{schema.UserMessage(prompt)}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add responder prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add responder model node: %w", err)
	}
	if err := graph.AddLambdaNode("to_text",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (string, error) {
			if msg == nil {
				return "", nil
			}
			return msg.Content, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add responder text node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "to_messages"},
		{"to_messages", "model"},
		{"model", "to_text"},
		{"to_text", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add responder edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	if strings.TrimSpace(graphName) == "" {
		graphName = "llm.responder"
	}
	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile responder graph: %w", err)
	}
	return runner, nil
}

// CompletionResponder calls the chat completions endpoint directly.
type CompletionResponder struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

var _ contractx.Responder = (*CompletionResponder)(nil)

func NewCompletionResponder(client *openaisdk.Client, model string, temperature float32, maxTokens int) (*CompletionResponder, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	return &CompletionResponder{
		client:      client,
		model:       model,
		temperature: float64(temperature),
		maxTokens:   int64(maxTokens),
	}, nil
}

func (r *CompletionResponder) Respond(ctx context.Context, prompt string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(r.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		Temperature: openaisdk.Float(r.temperature),
	}
	if r.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(r.maxTokens)
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
