// normalize.go reconciles the historical shapes of the forecast payload into
// one canonical result. Normalize is pure: no clock, no globals, no I/O.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mohae/deepcopy"
)

// DefaultHorizonDays is shown when the payload does not say how far ahead
// the forecast looks.
const DefaultHorizonDays = 30

// Candidate keys, canonical name first. The first present candidate wins.
var (
	p1Keys          = []string{"P1", "P1_CriticalActions", "P1_Critical"}
	p2Keys          = []string{"P2", "P2_ImportantActions", "P2_Important"}
	p3Keys          = []string{"P3", "P3_MonitoringActions", "P3_Monitoring"}
	emailStatusKeys = []string{"EmailDeliveryStatus", "EmailStatus", "emailDeliveryStatus"}
	riskKeys        = []string{"RiskCategories", "riskCategories"}
	sourceKeys      = []string{"DataSources", "dataSources"}
	horizonKeys     = []string{"ForecastHorizonDays", "forecastHorizonDays"}
	actionTextKeys  = []string{"Action", "action", "Title", "title"}
	costKeys        = []string{"CostEstimate", "costEstimate", "CostEstimateINR"}
)

// leadingNumber pulls the number off the front of strings like "85%".
var leadingNumber = regexp.MustCompile(`^\s*-?\d+(\.\d+)?`)

// RiskAssessment is one risk kind's level and confidence percentage.
type RiskAssessment struct {
	Level      string  `json:"level"`
	Confidence float64 `json:"confidence"`
}

// ForecastResults is the canonical forecast section.
type ForecastResults struct {
	RiskCategories      map[string]RiskAssessment `json:"riskCategories"`
	DataSources         []string                  `json:"dataSources"`
	ForecastHorizonDays int                       `json:"forecastHorizonDays"`
}

// ActionRecord is the structured form of a recommended action. CostEstimate
// is display text: a number ("1500") or whatever range the payload gave
// ("500-1000").
type ActionRecord struct {
	Action          string   `json:"action"`
	Deadline        string   `json:"deadline,omitempty"`
	Resources       []string `json:"resources,omitempty"`
	CostEstimate    string   `json:"costEstimate,omitempty"`
	ExpectedOutcome string   `json:"expectedOutcome,omitempty"`
}

// ActionItem is either plain text or a structured record, never both.
type ActionItem struct {
	Text   string        `json:"text,omitempty"`
	Record *ActionRecord `json:"record,omitempty"`
}

// Title is the headline text of the item in either form.
func (a ActionItem) Title() string {
	if a.Record != nil {
		return a.Record.Action
	}
	return a.Text
}

// ActionPlan holds the three priority buckets and the answer to the
// farmer's question.
type ActionPlan struct {
	P1                  []ActionItem   `json:"P1"`
	P2                  []ActionItem   `json:"P2"`
	P3                  []ActionItem   `json:"P3"`
	EmailDeliveryStatus map[string]any `json:"emailDeliveryStatus"`
	UserQuestion        string         `json:"userQuestion"`
	UserQueryResponse   string         `json:"userQueryResponse"`
	ImmediateAction     string         `json:"immediateAction"`
	ThisWeekAction      string         `json:"thisWeekAction"`
}

// CanonicalResult is the normalized view handed to renderers. Every slice
// and map is non-nil. Document is the enriched copy of the raw payload,
// including top-level fields this type does not model.
type CanonicalResult struct {
	Location        string          `json:"location"`
	ForecastResults ForecastResults `json:"forecastResults"`
	ActionPlan      ActionPlan      `json:"actionPlan"`
	Document        map[string]any  `json:"-"`
}

// EmailState returns the delivery status code ("success", "skipped",
// "error") or "" when unknown.
func (c CanonicalResult) EmailState() string {
	s, _ := c.ActionPlan.EmailDeliveryStatus["Status"].(string)
	return s
}

// NormalizeJSON decodes a raw payload and normalizes it.
func NormalizeJSON(data []byte, fallbackLocation string) (CanonicalResult, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return CanonicalResult{}, fmt.Errorf("decode result payload: %w", err)
	}
	return Normalize(raw, fallbackLocation), nil
}

// Normalize builds a CanonicalResult from raw. The input is never mutated
// and the output shares no memory with it.
func Normalize(raw map[string]any, fallbackLocation string) CanonicalResult {
	doc, _ := deepcopy.Copy(raw).(map[string]any)
	if doc == nil {
		doc = map[string]any{}
	}

	plan, _ := doc["ActionPlan"].(map[string]any)
	if plan == nil {
		plan = map[string]any{}
	}
	p1 := firstList(plan, p1Keys)
	p2 := firstList(plan, p2Keys)
	p3 := firstList(plan, p3Keys)
	email := firstMap(plan, emailStatusKeys)
	question := firstString(plan, "UserQuestion")
	if question == "" {
		question = firstString(doc, "UserQuery")
	}
	ap := ActionPlan{
		P1:                  toItems(p1),
		P2:                  toItems(p2),
		P3:                  toItems(p3),
		EmailDeliveryStatus: email,
		UserQuestion:        question,
		UserQueryResponse:   firstString(plan, "UserQueryResponse"),
		ImmediateAction:     firstString(plan, "ImmediateAction"),
		ThisWeekAction:      firstString(plan, "ThisWeekAction"),
	}
	doc["ActionPlan"] = map[string]any{
		"P1":                  p1,
		"P2":                  p2,
		"P3":                  p3,
		"EmailDeliveryStatus": email,
		"UserQuestion":        ap.UserQuestion,
		"UserQueryResponse":   ap.UserQueryResponse,
		"ImmediateAction":     ap.ImmediateAction,
		"ThisWeekAction":      ap.ThisWeekAction,
	}

	forecast, _ := doc["ForecastResults"].(map[string]any)
	if forecast == nil {
		forecast = map[string]any{}
		if doc["ForecastResults"] == nil {
			doc["ForecastResults"] = forecast
		}
	}

	location := firstString(doc, "Location")
	if location == "" {
		location = fallbackLocation
	}

	return CanonicalResult{
		Location:        location,
		ForecastResults: toForecast(forecast),
		ActionPlan:      ap,
		Document:        doc,
	}
}

func toForecast(m map[string]any) ForecastResults {
	fr := ForecastResults{
		RiskCategories:      map[string]RiskAssessment{},
		DataSources:         []string{},
		ForecastHorizonDays: DefaultHorizonDays,
	}
	for kind, v := range firstMap(m, riskKeys) {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		risk := RiskAssessment{
			Level:      firstString(entry, "Level", "level"),
			Confidence: toNumber(firstPresent(entry, "Confidence", "confidence")),
		}
		if risk.Level == "" {
			risk.Level = "Low"
		}
		fr.RiskCategories[kind] = risk
	}
	for _, v := range firstList(m, sourceKeys) {
		if s, ok := v.(string); ok && s != "" {
			fr.DataSources = append(fr.DataSources, s)
		}
	}
	for _, key := range horizonKeys {
		if n, ok := m[key].(float64); ok && n > 0 {
			fr.ForecastHorizonDays = int(math.Round(n))
			break
		}
	}
	return fr
}

func toItems(list []any) []ActionItem {
	items := make([]ActionItem, 0, len(list))
	for _, v := range list {
		switch item := v.(type) {
		case string:
			items = append(items, ActionItem{Text: item})
		case map[string]any:
			items = append(items, toRecordItem(item))
		case nil:
		default:
			items = append(items, ActionItem{Text: jsonText(item)})
		}
	}
	return items
}

// toRecordItem keeps the record whatever shape its other fields have; each
// field degrades to empty on its own.
func toRecordItem(m map[string]any) ActionItem {
	rec := ActionRecord{
		Action:          firstString(m, actionTextKeys...),
		Deadline:        toText(firstPresent(m, "Deadline", "deadline")),
		Resources:       toStrings(firstPresent(m, "Resources", "resources")),
		CostEstimate:    toText(firstPresent(m, costKeys...)),
		ExpectedOutcome: toText(firstPresent(m, "ExpectedOutcome", "expectedOutcome")),
	}
	if rec.Action == "" {
		rec.Action = jsonText(m)
	}
	return ActionItem{Record: &rec}
}

// toNumber weakly decodes v ("80" -> 80). Text that does not decode falls
// back to its leading number ("85%" -> 85), then to 0.
func toNumber(v any) float64 {
	if v == nil {
		return 0
	}
	var n float64
	if err := mapstructure.WeakDecode(v, &n); err == nil {
		return n
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(leadingNumber.FindString(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// toText renders scalars as text; numbers print without a trailing ".0".
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return jsonText(x)
	}
}

// toStrings accepts a list or a single value ("pump" -> ["pump"]).
func toStrings(v any) []string {
	var out []string
	if err := mapstructure.WeakDecode(v, &out); err == nil {
		return out
	}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s := toText(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := toText(v); s != "" {
		return []string{s}
	}
	return nil
}

// firstPresent returns the value of the first candidate key that is set
// and not an empty string.
func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

// firstList returns the first candidate holding a list. A non-empty string
// counts as a one-element list. An empty list still counts as present.
func firstList(m map[string]any, keys []string) []any {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			return v
		case string:
			if v != "" {
				return []any{v}
			}
		}
	}
	return []any{}
}

func firstMap(m map[string]any, keys []string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return map[string]any{}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
