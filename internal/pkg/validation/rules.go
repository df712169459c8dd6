package validation

import (
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// Journal and attachment limits
const (
	TitleMinLength = 2
	TitleMaxLength = 100

	MaxAttachments       = 5
	MaxAttachmentSize    = 10 << 20
	AttachmentsFormField = "attachments"
	MaxMultipartMemory   = 8 << 20
	defaultContentType   = "application/octet-stream"
	titleRule            = "required,min=2,max=100"
	requiredRule         = "required"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates v against its `validate` tags and returns a validation error
// describing the first failing field
func Struct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return translate(err, "")
	}
	return nil
}

// Title validates a journal title after trimming
func Title(title string) error {
	return Var("title", strings.TrimSpace(title), titleRule)
}

// Description validates a journal description after trimming
func Description(description string) error {
	return Var("description", strings.TrimSpace(description), requiredRule)
}

// Var validates a single value against a validator tag
func Var(field string, value interface{}, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return translate(err, field)
	}
	return nil
}

func translate(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError("invalid input: %v", err)
	}
	fe := verrs[0]
	name := field
	if name == "" {
		name = lowerFirst(fe.Field())
		if i := strings.IndexByte(name, '['); i > 0 {
			name = name[:i]
		}
	}
	return apperrors.NewFieldValidationError(name, FormatFieldError(name, fe))
}

// FormatFieldError creates a human-readable message for one failed rule
func FormatFieldError(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if field == "title" {
			return fmt.Sprintf("title must be between %d and %d characters", TitleMinLength, TitleMaxLength)
		}
		return field + " must be at least " + e.Param()
	case "max":
		if field == "title" {
			return fmt.Sprintf("title must be between %d and %d characters", TitleMinLength, TitleMaxLength)
		}
		return field + " must be at most " + e.Param()
	case "gt":
		return field + " must contain positive ids"
	case "oneof":
		return field + " must be one of: " + e.Param()
	default:
		return field + " validation failed: " + e.Tag()
	}
}

// AttachmentContentType returns the declared MIME type of an upload
func AttachmentContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return defaultContentType
}

// Attachments checks count, size and media type of uploaded files. Only images,
// videos and PDFs are accepted.
func Attachments(files []*multipart.FileHeader) error {
	if len(files) > MaxAttachments {
		return apperrors.NewFieldValidationError(AttachmentsFormField,
			fmt.Sprintf("at most %d attachments are allowed per request", MaxAttachments))
	}
	for _, fh := range files {
		if fh.Size > MaxAttachmentSize {
			return apperrors.NewFieldValidationError(AttachmentsFormField,
				fmt.Sprintf("%s exceeds the %d MB limit", fh.Filename, MaxAttachmentSize>>20))
		}
		ct := mediaType(AttachmentContentType(fh))
		if !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "video/") && ct != "application/pdf" {
			return apperrors.NewFieldValidationError(AttachmentsFormField,
				fmt.Sprintf("%s: only images, videos and PDFs are allowed", fh.Filename))
		}
	}
	return nil
}

// mediaType lowercases a Content-Type and drops its parameters
func mediaType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
