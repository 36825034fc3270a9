package inbox

import (
	"testing"
	"time"

	"livechat-backend/internal/model"
)

func TestSettingsDefaults(t *testing.T) {
	settings := SettingsFromInbox(model.InboxItem{})

	if settings.Rating.MaxScore != DefaultRatingMaxScore {
		t.Fatalf("unexpected rating max %d", settings.Rating.MaxScore)
	}
	if settings.Rating.Type != DefaultRatingType {
		t.Fatalf("unexpected rating type %s", settings.Rating.Type)
	}
	if settings.Widget.BubbleText != DefaultWidgetBubbleText {
		t.Fatalf("unexpected bubble text %s", settings.Widget.BubbleText)
	}
	if settings.AutoReply.Enabled || settings.Offline.Enabled || settings.SSEEnabled {
		t.Fatal("feature flags should default to off")
	}
	if !settings.WorkingHours.Within(time.Now()) {
		t.Fatal("disabled working hours should count as open")
	}
}

func TestSettingsFromBlob(t *testing.T) {
	item := model.InboxItem{Settings: map[string]interface{}{
		"automation": map[string]interface{}{
			"auto_reply": map[string]interface{}{
				"enabled": true,
				"body":    "Thanks, we'll reply shortly.",
			},
		},
		"offline": map[string]interface{}{
			"enabled": true,
			"message": "Back tomorrow.",
		},
		"rating": map[string]interface{}{
			"enabled":   true,
			"type":      "emoji",
			"max_score": float64(3),
		},
		"integrations": map[string]interface{}{
			"webhook": map[string]interface{}{
				"enabled": true,
				"url":     "https://example.com/hook",
				"secret":  "s3cret",
				"events":  []interface{}{"message.created"},
			},
		},
		"features": map[string]interface{}{"sse": true},
	}}

	settings := SettingsFromInbox(item)

	if !settings.AutoReply.Enabled || settings.AutoReply.Body != "Thanks, we'll reply shortly." {
		t.Fatalf("unexpected auto reply %+v", settings.AutoReply)
	}
	if !settings.Offline.Enabled || settings.Offline.Message != "Back tomorrow." {
		t.Fatalf("unexpected offline %+v", settings.Offline)
	}
	if settings.Rating.MaxScore != 3 || settings.Rating.Type != "emoji" {
		t.Fatalf("unexpected rating %+v", settings.Rating)
	}
	if !settings.SSEEnabled {
		t.Fatal("expected sse enabled")
	}
	if !settings.Webhook.Allows("message.created") {
		t.Fatal("expected webhook to allow listed event")
	}
	if settings.Webhook.Allows("conversation.closed") {
		t.Fatal("expected webhook to reject unlisted event")
	}
}

func TestWebhookEmptyAllowListMeansAll(t *testing.T) {
	hook := WebhookSettings{Enabled: true, URL: "https://example.com"}
	if !hook.Allows("conversation.created") {
		t.Fatal("empty allow-list should mean all events")
	}
}

func TestWorkingHoursWithin(t *testing.T) {
	hours := WorkingHoursSettings{
		Enabled: true,
		Start:   "09:00",
		End:     "17:00",
		Days:    []int{1, 2, 3, 4, 5},
	}

	monday10 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !hours.Within(monday10) {
		t.Fatal("Monday 10:00 should be within hours")
	}

	monday18 := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)
	if hours.Within(monday18) {
		t.Fatal("Monday 18:00 should be outside hours")
	}

	sunday10 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if hours.Within(sunday10) {
		t.Fatal("Sunday should be outside configured days")
	}
}

func TestWorkingHoursOvernight(t *testing.T) {
	hours := WorkingHoursSettings{Enabled: true, Start: "22:00", End: "06:00"}

	if !hours.Within(time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("23:00 should be within an overnight window")
	}
	if hours.Within(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("12:00 should be outside an overnight window")
	}
}
