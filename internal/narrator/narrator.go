// Package narrator writes a one-line description per cluster. With an OpenAI
// key the text comes from a chat completion; otherwise, or when the call
// fails, a deterministic summary of the dominant buckets is used.
package narrator

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"election-insights/internal/constants"
	"election-insights/internal/models"
	"election-insights/internal/prompts"
	"election-insights/pkg/circuit"
	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// Completer is the part of *openai.Client the narrator uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Narrator describes clustering results.
type Narrator struct {
	client  Completer // nil: fallback only
	model   string
	prompts *prompts.Manager
	breaker *circuit.Breaker
	log     *logging.ComponentLogger

	requests  *metrics.Counter
	fallbacks *metrics.Counter
}

// New returns a narrator backed by OpenAI when apiKey is set.
func New(apiKey, model string, timeout time.Duration, logger *logging.Logger) (*Narrator, error) {
	var client Completer
	if strings.TrimSpace(apiKey) != "" {
		client = openai.NewClient(apiKey)
	}
	return NewWithClient(client, model, timeout, logger)
}

// NewWithClient uses client for completions; a nil client always falls back.
func NewWithClient(client Completer, model string, timeout time.Duration, logger *logging.Logger) (*Narrator, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	pm, err := prompts.NewManager()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = constants.NarratorRequestTimeout
	}
	cfg := circuit.DefaultConfig("openai")
	cfg.OperationTimeout = timeout
	cfg.OpenFor = constants.NarratorOpenFor

	return &Narrator{
		client:    client,
		model:     model,
		prompts:   pm,
		breaker:   circuit.New(cfg, logger),
		log:       logger.WithComponent("narrator"),
		requests:  metrics.Default.Counter("narrator_requests_total", "Cluster description completions requested"),
		fallbacks: metrics.Default.Counter("narrator_fallbacks_total", "Cluster descriptions served by the built-in summary"),
	}, nil
}

// Enabled reports whether descriptions come from the model.
func (n *Narrator) Enabled() bool { return n.client != nil }

// Describe returns a description for every cluster id in res. It never
// fails: any cluster the model does not describe gets the fallback text.
func (n *Narrator) Describe(ctx context.Context, res *models.ClusteringResult) map[int]string {
	summaries := Summarize(res)
	out := make(map[int]string, len(summaries))
	for _, s := range summaries {
		out[s.ID] = s.Fallback()
	}
	if n.client == nil || len(summaries) == 0 {
		n.fallbacks.Inc(int64(len(summaries)))
		return out
	}

	var text string
	err := n.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = n.complete(ctx, res.Level, summaries)
		return err
	}, nil)
	if err != nil {
		n.log.Ctx(ctx).Warn("cluster descriptions unavailable, using summaries", logging.Error(err))
		n.fallbacks.Inc(int64(len(summaries)))
		return out
	}

	got := parseLines(text)
	for _, s := range summaries {
		if d, ok := got[s.ID]; ok {
			out[s.ID] = d
		} else {
			n.fallbacks.Inc(1)
		}
	}
	return out
}

func (n *Narrator) complete(ctx context.Context, level models.Granularity, summaries []Summary) (string, error) {
	data := map[string]any{"Level": string(level), "Clusters": summaries}
	system, err := n.prompts.Render("cluster_system", data)
	if err != nil {
		return "", err
	}
	user, err := n.prompts.Render("cluster_user", data)
	if err != nil {
		return "", err
	}

	n.requests.Inc(1)
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   constants.NarratorMaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseLines reads "<n>: text" lines, n being the 1-based cluster number,
// into 0-based ids. Other lines are ignored.
func parseLines(text string) map[int]string {
	out := make(map[int]string)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		line = strings.TrimLeft(line, "-* ")
		line = strings.TrimPrefix(line, "Cluster ")
		num, desc, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(num))
		desc = strings.TrimSpace(desc)
		if err != nil || id < 1 || desc == "" {
			continue
		}
		if _, dup := out[id-1]; !dup {
			out[id-1] = desc
		}
	}
	return out
}

// BucketShare is one center coordinate.
type BucketShare struct {
	Name  string
	Value float64
}

// Summary is what the narrator knows about one cluster.
type Summary struct {
	ID      int
	Size    int
	Buckets []BucketShare // descending by value
}

// Summarize extracts cluster sizes and center shares, ordered by id.
func Summarize(res *models.ClusteringResult) []Summary {
	if res == nil {
		return nil
	}
	sizes := make(map[int]int)
	for _, r := range res.Records {
		sizes[r.Cluster]++
	}
	ids := make([]int, 0, len(res.ClusterCenters))
	for id := range res.ClusterCenters {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		center := res.ClusterCenters[id]
		s := Summary{ID: id, Size: sizes[id]}
		for _, b := range models.Buckets {
			s.Buckets = append(s.Buckets, BucketShare{Name: DisplayName(b), Value: center[models.CenterKey(b)]})
		}
		sort.SliceStable(s.Buckets, func(i, j int) bool { return s.Buckets[i].Value > s.Buckets[j].Value })
		out = append(out, s)
	}
	return out
}

// Fallback names the three largest buckets.
func (s Summary) Fallback() string {
	top := s.Buckets
	if len(top) > 3 {
		top = top[:3]
	}
	parts := make([]string, len(top))
	for i, b := range top {
		parts[i] = fmt.Sprintf("%s %.1f%%", b.Name, b.Value)
	}
	unit := "units"
	if s.Size == 1 {
		unit = "unit"
	}
	return fmt.Sprintf("%d %s; largest groups: %s", s.Size, unit, strings.Join(parts, ", "))
}

// DisplayName turns "female_65_plus" into "female 65+" and "male_18_24" into "male 18-24".
func DisplayName(b models.Bucket) string {
	gender, age, _ := strings.Cut(string(b), "_")
	if strings.HasSuffix(age, "_plus") {
		return gender + " " + strings.TrimSuffix(age, "_plus") + "+"
	}
	return gender + " " + strings.ReplaceAll(age, "_", "-")
}
