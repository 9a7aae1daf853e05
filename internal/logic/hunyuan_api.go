package logic

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	v20230901 "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/hunyuan/v20230901"

	"berean-backend/internal/db"
)

// HunyuanReflector calls ChatCompletions through the Tencent Cloud SDK.
type HunyuanReflector struct {
	SecretID  string
	SecretKey string
	Endpoint  string
	Model     string
}

func hunyuanMessage(role, content string) *v20230901.Message {
	return &v20230901.Message{Role: common.StringPtr(role), Content: common.StringPtr(content)}
}

// hunyuanMessages lays out the system prompt, the last exchanges and the new
// user message. The API requires user and assistant turns to alternate.
func hunyuanMessages(passages []string, history []db.ReflectionRecord, message string) []*v20230901.Message {
	msgs := []*v20230901.Message{hunyuanMessage("system", readingContext(passages))}
	lastRole := "system"
	for _, h := range history {
		role := "assistant"
		if h.IsUser {
			role = "user"
		}
		if role == lastRole || (lastRole == "system" && role == "assistant") {
			continue
		}
		msgs = append(msgs, hunyuanMessage(role, h.Content))
		lastRole = role
	}
	if lastRole == "user" {
		msgs = msgs[:len(msgs)-1]
	}
	return append(msgs, hunyuanMessage("user", message))
}

func (r *HunyuanReflector) Reflect(ctx context.Context, passages []string, history []db.ReflectionRecord, message string) (string, error) {
	credential := common.NewCredential(r.SecretID, r.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = r.Endpoint
	client, err := v20230901.NewClient(credential, "", cpf)
	if err != nil {
		return "", errors.Wrap(err, "hunyuan client")
	}

	req := v20230901.NewChatCompletionsRequest()
	req.Model = common.StringPtr(r.Model)
	req.Messages = hunyuanMessages(passages, history, message)
	req.Stream = common.BoolPtr(false)
	resp, err := client.ChatCompletionsWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "hunyuan chat completions")
	}
	if resp == nil || resp.Response == nil {
		return "", errors.New("hunyuan: empty response")
	}
	var sb strings.Builder
	for _, choice := range resp.Response.Choices {
		if choice.Message != nil && choice.Message.Content != nil {
			sb.WriteString(*choice.Message.Content)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("hunyuan: no content in response")
	}
	return strings.TrimSpace(sb.String()), nil
}
