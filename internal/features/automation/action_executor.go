package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/workflow"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"
)

// Notifier delivers an in-app notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) error
}

// Event is the transition an executed rule reacted to.
type Event struct {
	Case      *casefile.Case
	OldStatus string
	Created   []workflow.TaskInstance
	Snapshot  map[string]interface{}
}

// ActionExecutor runs a rule's actions against a case transition. Action
// failures are logged, never propagated; an automation rule can not break
// the lifecycle.
type ActionExecutor interface {
	ExecuteActions(ctx context.Context, actions []RuleAction, ev Event)
}

type ActionExecutorImpl struct {
	Notifier   Notifier
	Logger     *zap.Logger
	httpClient *http.Client
}

func NewActionExecutor(notifier Notifier, logger *zap.Logger) ActionExecutor {
	return &ActionExecutorImpl{
		Notifier:   notifier,
		Logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *ActionExecutorImpl) ExecuteActions(ctx context.Context, actions []RuleAction, ev Event) {
	for i, action := range actions {
		if err := e.executeAction(ctx, action, ev); err != nil {
			e.Logger.Error("automation action failed",
				zap.Int("action", i),
				zap.String("type", string(action.Type)),
				zap.String("case_id", ev.Case.ID.Hex()),
				zap.Error(err))
		}
	}
}

func (e *ActionExecutorImpl) executeAction(ctx context.Context, action RuleAction, ev Event) error {
	switch action.Type {
	case ActionWebhook:
		return e.executeWebhook(ctx, action.Config, ev)
	case ActionRunScript:
		return e.executeRunScript(ctx, action.Config, ev)
	case ActionNotify:
		return e.executeNotify(ctx, action.Config, ev)
	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *ActionExecutorImpl) executeWebhook(ctx context.Context, config map[string]interface{}, ev Event) error {
	url, _ := config["url"].(string)
	if url == "" {
		return fmt.Errorf("webhook URL is required")
	}
	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(map[string]interface{}{
		"case_id":    ev.Case.ID.Hex(),
		"status":     ev.Case.Status,
		"old_status": ev.OldStatus,
		"fields":     ev.Snapshot,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := config["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}

// executeRunScript runs an admin-configured tengo script with the case's
// transition exposed as script variables.
func (e *ActionExecutorImpl) executeRunScript(ctx context.Context, config map[string]interface{}, ev Event) error {
	source, _ := config["script"].(string)
	if source == "" {
		return fmt.Errorf("script content is required")
	}

	script := tengo.NewScript([]byte(source))
	script.SetImports(stdlib.GetModuleMap("fmt", "text", "math", "times"))

	_ = script.Add("case_id", ev.Case.ID.Hex())
	_ = script.Add("status", ev.Case.Status)
	_ = script.Add("old_status", ev.OldStatus)
	_ = script.Add("fields", ev.Snapshot)

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("failed to compile script: %w", err)
	}
	if err := compiled.RunContext(ctx); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	return nil
}

func (e *ActionExecutorImpl) executeNotify(ctx context.Context, config map[string]interface{}, ev Event) error {
	title, _ := config["title"].(string)
	if title == "" {
		return fmt.Errorf("notification title is required")
	}
	message, _ := config["message"].(string)

	userID, _ := config["user_id"].(string)
	if userID == "" {
		userID = ev.Case.CreatedBy
	}
	if userID == "" || userID == "system" {
		return fmt.Errorf("notification has no recipient")
	}

	return e.Notifier.Notify(ctx, userID,
		replacePlaceholders(title, ev),
		replacePlaceholders(message, ev))
}

// replacePlaceholders substitutes {{field}} markers with snapshot values;
// {{status}} and {{case_id}} come from the case itself.
func replacePlaceholders(text string, ev Event) string {
	values := map[string]interface{}{
		"case_id":    ev.Case.ID.Hex(),
		"status":     ev.Case.Status,
		"old_status": ev.OldStatus,
	}
	for key, value := range ev.Snapshot {
		values[key] = value
	}

	for key, value := range values {
		placeholder := fmt.Sprintf("{{%s}}", key)
		text = strings.ReplaceAll(text, placeholder, fmt.Sprintf("%v", value))
	}
	return text
}
