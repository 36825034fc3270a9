package inbox

import (
	"fmt"
	"strings"
	"time"

	"livechat-backend/internal/model"
)

const (
	DefaultWidgetBubbleText = "Chat with us"
	DefaultWidgetHeaderText = "Need a hand?"
	DefaultWidgetThemeColor = "#2563EB"

	DefaultRatingType     = "star"
	DefaultRatingMaxScore = 5
	DefaultOfflineMessage = "We are currently offline. Leave a message and we will get back to you."
)

// Settings is the typed view of an inbox's configuration blob. The blob is
// parsed once at the boundary; the rest of the core never touches the raw
// map.
type Settings struct {
	AutoReply    AutoReplySettings
	Offline      OfflineSettings
	Rating       RatingSettings
	Webhook      WebhookSettings
	WorkingHours WorkingHoursSettings
	Widget       WidgetSettings
	SSEEnabled   bool
}

type AutoReplySettings struct {
	Enabled bool
	Body    string
}

type OfflineSettings struct {
	Enabled bool
	Message string
}

type RatingSettings struct {
	Enabled  bool
	Type     string
	MaxScore int
}

type WebhookSettings struct {
	Enabled bool
	URL     string
	Secret  string
	Events  []string
}

// Allows reports whether the webhook configuration wants the given event.
// An empty allow-list means all events.
func (w WebhookSettings) Allows(event string) bool {
	if !w.Enabled || w.URL == "" {
		return false
	}
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

type WorkingHoursSettings struct {
	Enabled bool
	Start   string // HH:MM
	End     string // HH:MM
	Days    []int  // time.Weekday values
}

// Within reports whether now falls inside the configured working hours.
// Disabled or unparsable configuration counts as always open.
func (w WorkingHoursSettings) Within(now time.Time) bool {
	if !w.Enabled {
		return true
	}

	if len(w.Days) > 0 {
		found := false
		for _, d := range w.Days {
			if int(now.Weekday()) == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, err1 := parseClock(w.Start)
	end, err2 := parseClock(w.End)
	if err1 != nil || err2 != nil {
		return true
	}

	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Overnight window, e.g. 22:00-06:00.
	return minute >= start || minute < end
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock out of range: %s", s)
	}
	return h*60 + m, nil
}

type WidgetSettings struct {
	BubbleText string
	HeaderText string
	ThemeColor string
}

func defaultSettings() Settings {
	return Settings{
		Offline: OfflineSettings{Message: DefaultOfflineMessage},
		Rating:  RatingSettings{Type: DefaultRatingType, MaxScore: DefaultRatingMaxScore},
		Widget: WidgetSettings{
			BubbleText: DefaultWidgetBubbleText,
			HeaderText: DefaultWidgetHeaderText,
			ThemeColor: DefaultWidgetThemeColor,
		},
	}
}

// SettingsFromInbox parses the inbox settings blob into a typed Settings
// with documented defaults. Unknown keys are ignored.
func SettingsFromInbox(item model.InboxItem) Settings {
	return settingsFromMap(item.Settings)
}

func settingsFromMap(raw map[string]interface{}) Settings {
	result := defaultSettings()
	if raw == nil {
		return result
	}

	if automation, ok := subMap(raw, "automation"); ok {
		if reply, ok := subMap(automation, "auto_reply"); ok {
			result.AutoReply.Enabled = boolVal(reply, "enabled")
			if body := stringVal(reply, "body"); body != "" {
				result.AutoReply.Body = body
			}
		}
	}

	if offline, ok := subMap(raw, "offline"); ok {
		result.Offline.Enabled = boolVal(offline, "enabled")
		if msg := stringVal(offline, "message"); msg != "" {
			result.Offline.Message = msg
		}
	}

	if rating, ok := subMap(raw, "rating"); ok {
		result.Rating.Enabled = boolVal(rating, "enabled")
		if t := stringVal(rating, "type"); t != "" {
			result.Rating.Type = t
		}
		if max := intVal(rating, "max_score"); max > 0 {
			result.Rating.MaxScore = max
		}
	}

	if integrations, ok := subMap(raw, "integrations"); ok {
		if webhook, ok := subMap(integrations, "webhook"); ok {
			result.Webhook.Enabled = boolVal(webhook, "enabled")
			result.Webhook.URL = stringVal(webhook, "url")
			result.Webhook.Secret = stringVal(webhook, "secret")
			result.Webhook.Events = stringSliceVal(webhook, "events")
		}
	}

	if hours, ok := subMap(raw, "working_hours"); ok {
		result.WorkingHours.Enabled = boolVal(hours, "enabled")
		result.WorkingHours.Start = stringVal(hours, "start")
		result.WorkingHours.End = stringVal(hours, "end")
		result.WorkingHours.Days = intSliceVal(hours, "days")
	}

	if features, ok := subMap(raw, "features"); ok {
		result.SSEEnabled = boolVal(features, "sse")
	}

	if widget, ok := subMap(raw, "widget"); ok {
		if v := stringVal(widget, "bubbleText"); v != "" {
			result.Widget.BubbleText = v
		}
		if v := stringVal(widget, "headerText"); v != "" {
			result.Widget.HeaderText = v
		}
		if v := stringVal(widget, "themeColor"); v != "" {
			result.Widget.ThemeColor = v
		}
	}

	return result
}

func subMap(raw map[string]interface{}, key string) (map[string]interface{}, bool) {
	val, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := val.(map[string]interface{})
	return m, ok
}

func boolVal(raw map[string]interface{}, key string) bool {
	val, _ := raw[key].(bool)
	return val
}

func stringVal(raw map[string]interface{}, key string) string {
	val, _ := raw[key].(string)
	return strings.TrimSpace(val)
}

func intVal(raw map[string]interface{}, key string) int {
	switch v := raw[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func stringSliceVal(raw map[string]interface{}, key string) []string {
	list, ok := raw[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intSliceVal(raw map[string]interface{}, key string) []int {
	list, ok := raw[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case int:
			out = append(out, v)
		case float64:
			out = append(out, int(v))
		}
	}
	return out
}
