package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClassifier extracts the contrarian analysis with an OpenAI chat
// model instructed to answer in strict JSON.
type OpenAIClassifier struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client

	primaryCode, primaryName string
	inverseCode, inverseName string
}

func NewOpenAIClassifier(apiKey, model, primaryCode, primaryName, inverseCode, inverseName string) *OpenAIClassifier {
	return &OpenAIClassifier{
		apiKey:      apiKey,
		model:       model,
		endpoint:    defaultEndpoint,
		http:        &http.Client{Timeout: 120 * time.Second},
		primaryCode: primaryCode,
		primaryName: primaryName,
		inverseCode: inverseCode,
		inverseName: inverseName,
	}
}

// rawAnalysis is the JSON schema the model is instructed to emit.
type rawAnalysis struct {
	ContentType string `json:"content_type"` // "opinion" or "skip"
	Sentiment   string `json:"sentiment"`    // "UP" | "DOWN" | "NEUTRAL"
	Reasoning   string `json:"reasoning"`
	Target      *struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"target_instrument"`
	Summary string `json:"notification_summary"`
}

func (c *OpenAIClassifier) Classify(ctx context.Context, item Item) (*Analysis, error) {
	payload := map[string]any{
		"model":           c.model,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt()},
			{"role": "user", "content": c.userPrompt(item)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model API error %d: %s", resp.StatusCode, msg)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in model response")
	}

	return parseAnalysis(completion.Choices[0].Message.Content)
}

// parseAnalysis decodes the model's JSON answer, tolerating markdown code
// fences around it.
func parseAnalysis(text string) (*Analysis, error) {
	cleaned := stripCodeFence(text)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("parsing model JSON output: %w (raw: %.200s)", err, text)
	}

	a := &Analysis{
		Sentiment: strings.ToUpper(raw.Sentiment),
		Reasoning: raw.Reasoning,
		Summary:   raw.Summary,
		Skip:      strings.EqualFold(raw.ContentType, "skip"),
	}
	if raw.Target != nil && raw.Target.Code != "" {
		a.Target = &Target{Code: raw.Target.Code, Name: raw.Target.Name}
	}

	switch a.Sentiment {
	case "UP", "DOWN", "NEUTRAL":
	default:
		if !a.Skip {
			return nil, fmt.Errorf("model returned unknown sentiment %q", raw.Sentiment)
		}
	}
	return a, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (c *OpenAIClassifier) systemPrompt() string {
	return fmt.Sprintf(`You are a contrarian investment analyst reviewing a Korean finance creator's video transcript.

Step 1 - content type: decide whether the creator personally states a market outlook ("opinion") or the video is only news summaries or guest interviews ("skip").

Step 2 - stance: classify the creator's market stance as "UP" (optimistic, buy recommendations), "DOWN" (pessimistic, sell or wait), or "NEUTRAL" (no clear direction).

Step 3 - contrarian action with exactly two tradable instruments:
- stance UP: bet the other way, buy %s (%s)
- stance DOWN: bet the other way, buy %s (%s)
- stance NEUTRAL: stay in cash, target_instrument must be null

Answer with pure JSON only, no markdown fences, following this schema:
{"content_type":"opinion"|"skip","sentiment":"UP"|"DOWN"|"NEUTRAL","reasoning":"2-3 sentences summarizing the creator's key statements","target_instrument":{"code":"...","name":"..."}|null,"notification_summary":"short message for a chat notification, max 5 lines"}

Base the analysis only on the transcript. Do not guess.`,
		c.inverseName, c.inverseCode, c.primaryName, c.primaryCode)
}

func (c *OpenAIClassifier) userPrompt(item Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Published: %s\n", item.Published)
	fmt.Fprintf(&b, "URL: %s\n\n", item.URL)
	b.WriteString("Transcript:\n")
	b.WriteString(item.Transcript)
	return b.String()
}
