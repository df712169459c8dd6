package models

import "testing"

func TestAttachmentKindFromMIME(t *testing.T) {
	tests := map[string]AttachmentKind{
		"image/png":                 AttachmentImage,
		"IMAGE/JPEG":                AttachmentImage,
		"video/mp4":                 AttachmentVideo,
		"application/pdf":           AttachmentPDF,
		"application/pdf; charset=": AttachmentPDF,
		"text/plain":                AttachmentURL,
		"":                          AttachmentURL,
		"application/pdfx":          AttachmentURL,
	}
	for mime, want := range tests {
		if got := AttachmentKindFromMIME(mime); got != want {
			t.Errorf("AttachmentKindFromMIME(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestDefaultNotificationPreference(t *testing.T) {
	p := DefaultNotificationPreference(7)
	if p.UserID != 7 || !p.EmailEnabled || !p.InAppEnabled || p.PushEnabled || p.EmailFrequency != EmailImmediate {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}
