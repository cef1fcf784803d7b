package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/vango-go/vai-companion/pkg/core/types"
)

type fakeModels struct {
	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig

	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	f.gotConfig = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func TestComplete_TranslatesRolesAndSystem(t *testing.T) {
	fake := &fakeModels{resp: textResponse("درود")}
	p := newWithGenerator(fake, WithModel("gemini-test"), WithMaxOutputTokens(64))

	got, err := p.Complete(t.Context(), []types.Message{
		types.System("persona"),
		types.User("سلام"),
		types.Assistant("سلام!"),
		types.User("خوبی؟"),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "درود" {
		t.Fatalf("Complete() = %q, want درود", got)
	}
	if fake.gotModel != "gemini-test" {
		t.Fatalf("model = %q", fake.gotModel)
	}
	if len(fake.gotContents) != 3 {
		t.Fatalf("contents = %d, want 3", len(fake.gotContents))
	}
	wantRoles := []string{genai.RoleUser, genai.RoleModel, genai.RoleUser}
	for i, c := range fake.gotContents {
		if c.Role != wantRoles[i] {
			t.Fatalf("contents[%d].Role = %q, want %q", i, c.Role, wantRoles[i])
		}
	}
	sys := fake.gotConfig.SystemInstruction
	if sys == nil || len(sys.Parts) != 1 || sys.Parts[0].Text != "persona" {
		t.Fatalf("SystemInstruction = %+v", sys)
	}
	if fake.gotConfig.MaxOutputTokens != 64 {
		t.Fatalf("MaxOutputTokens = %d", fake.gotConfig.MaxOutputTokens)
	}
}

func TestComplete_EmptyText(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}}
	p := newWithGenerator(fake)
	_, err := p.Complete(t.Context(), []types.Message{types.User("hi")})
	var gErr *Error
	if !errors.As(err, &gErr) || gErr.Code != string(genai.FinishReasonSafety) {
		t.Fatalf("error = %v, want *Error with finish reason", err)
	}
}

func TestComplete_OnlySystemIsInvalid(t *testing.T) {
	p := newWithGenerator(&fakeModels{})
	_, err := p.Complete(t.Context(), []types.Message{types.System("s")})
	var gErr *Error
	if !errors.As(err, &gErr) || gErr.Type != ErrInvalidRequest {
		t.Fatalf("error = %v, want invalid request", err)
	}
}

func TestComplete_APIErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{400, ErrInvalidRequest},
		{401, ErrAuthentication},
		{429, ErrRateLimit},
		{503, ErrOverloaded},
		{500, ErrAPI},
	}
	for _, tt := range tests {
		fake := &fakeModels{err: genai.APIError{Code: tt.code, Message: "m", Status: "S"}}
		p := newWithGenerator(fake)
		_, err := p.Complete(t.Context(), []types.Message{types.User("hi")})
		var gErr *Error
		if !errors.As(err, &gErr) || gErr.Type != tt.want {
			t.Fatalf("code %d: error = %v, want %s", tt.code, err, tt.want)
		}
	}
}

func TestComplete_ContextErrorPassesThrough(t *testing.T) {
	fake := &fakeModels{err: context.Canceled}
	p := newWithGenerator(fake)
	_, err := p.Complete(t.Context(), []types.Message{types.User("hi")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
