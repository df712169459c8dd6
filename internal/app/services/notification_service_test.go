package services

import (
	"strings"
	"testing"

	"github.com/yigit/classjournal/internal/app/models"
)

func channels(intents []Intent) []Channel {
	out := make([]Channel, len(intents))
	for i, in := range intents {
		out[i] = in.Channel
	}
	return out
}

func TestPlanDelivery(t *testing.T) {
	n := models.Notification{ID: 1, UserID: 2, JournalID: 3, Type: models.NotificationJournalPublish}

	tests := []struct {
		name string
		pref models.NotificationPreference
		want []Channel
	}{
		{
			name: "defaults",
			pref: models.DefaultNotificationPreference(2),
			want: []Channel{ChannelInApp, ChannelEmail},
		},
		{
			name: "all off",
			pref: models.NotificationPreference{EmailFrequency: models.EmailImmediate},
			want: []Channel{},
		},
		{
			name: "daily digest with push",
			pref: models.NotificationPreference{EmailEnabled: true, PushEnabled: true, EmailFrequency: models.EmailDailyDigest},
			want: []Channel{ChannelEmailDigest, ChannelPush},
		},
		{
			name: "digest frequency ignored when email disabled",
			pref: models.NotificationPreference{InAppEnabled: true, EmailFrequency: models.EmailWeeklyDigest},
			want: []Channel{ChannelInApp},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := channels(PlanDelivery(tt.pref, n))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPlanDelivery_DigestFrequency(t *testing.T) {
	pref := models.NotificationPreference{EmailEnabled: true, EmailFrequency: models.EmailWeeklyDigest}
	intents := PlanDelivery(pref, models.Notification{ID: 5})
	if len(intents) != 1 || intents[0].Frequency != models.EmailWeeklyDigest || intents[0].Notification.ID != 5 {
		t.Errorf("unexpected intents %+v", intents)
	}
}

func TestNotificationMessage(t *testing.T) {
	for kind, want := range map[models.NotificationType]string{
		models.NotificationJournalPublish: "published",
		models.NotificationJournalTag:     "tagged",
		models.NotificationJournalUpdate:  "updated",
	} {
		if got := NotificationMessage(kind, "Art Class"); !strings.Contains(got, want) || !strings.Contains(got, "Art Class") {
			t.Errorf("NotificationMessage(%s) = %q", kind, got)
		}
	}
}
