package controllers

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/validation"
)

// Multipart form keys of a journal write
const (
	formTitle         = "title"
	formDescription   = "description"
	formStudentIDs    = "studentIds"
	formPublishedAt   = "publishedAt"
	formRemoveAttachs = "removeAttachmentIds"
)

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.ContentType(), "multipart/form-data")
}

// multipartForm parses the request form and returns its values and uploaded attachments
func multipartForm(ctx *gin.Context) (map[string][]string, []*multipart.FileHeader, error) {
	if err := ctx.Request.ParseMultipartForm(validation.MaxMultipartMemory); err != nil {
		return nil, nil, apperrors.NewValidationError("invalid multipart form: %v", err)
	}
	form := ctx.Request.MultipartForm
	return form.Value, form.File[validation.AttachmentsFormField], nil
}

// bindCreateJournal reads a create request from JSON or from a multipart form
func bindCreateJournal(ctx *gin.Context) (*dto.CreateJournalRequest, []*multipart.FileHeader, error) {
	var req dto.CreateJournalRequest
	if !isMultipart(ctx) {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, nil, apperrors.NewValidationError("invalid request body: %v", err)
		}
		return &req, nil, validation.Struct(&req)
	}

	values, files, err := multipartForm(ctx)
	if err != nil {
		return nil, nil, err
	}
	req.Title = firstValue(values, formTitle)
	req.Description = firstValue(values, formDescription)
	if req.StudentIDs, err = parseIDList(formStudentIDs, values[formStudentIDs]); err != nil {
		return nil, nil, err
	}
	if req.PublishedAt, err = parseTime(formPublishedAt, firstValue(values, formPublishedAt)); err != nil {
		return nil, nil, err
	}
	return &req, files, nil
}

// bindUpdateJournal reads a partial update. Presence follows the JSON keys or the form
// keys that were sent, so an empty studentIds value clears every tag.
func bindUpdateJournal(ctx *gin.Context) (*dto.UpdateJournalRequest, []*multipart.FileHeader, error) {
	var req dto.UpdateJournalRequest
	if !isMultipart(ctx) {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, nil, apperrors.NewValidationError("invalid request body: %v", err)
		}
		return &req, nil, nil
	}

	values, files, err := multipartForm(ctx)
	if err != nil {
		return nil, nil, err
	}
	if v, ok := values[formTitle]; ok && len(v) > 0 {
		req.Title = dto.Some(v[0])
	}
	if v, ok := values[formDescription]; ok && len(v) > 0 {
		req.Description = dto.Some(v[0])
	}
	if v, ok := values[formStudentIDs]; ok {
		ids, err := parseIDList(formStudentIDs, v)
		if err != nil {
			return nil, nil, err
		}
		req.StudentIDs = dto.Some(ids)
	}
	if _, ok := values[formPublishedAt]; ok {
		at, err := parseTime(formPublishedAt, firstValue(values, formPublishedAt))
		if err != nil {
			return nil, nil, err
		}
		req.PublishedAt = dto.Some(at)
	}
	if req.RemoveAttachmentIDs, err = parseIDList(formRemoveAttachs, values[formRemoveAttachs]); err != nil {
		return nil, nil, err
	}
	return &req, files, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// parseIDList accepts repeated form values, comma separated ids or a JSON array
func parseIDList(field string, raw []string) ([]int64, error) {
	ids := []int64{}
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "[") {
			var parsed []int64
			if err := json.Unmarshal([]byte(v), &parsed); err != nil {
				return nil, apperrors.NewFieldValidationError(field, field+" must be a list of ids")
			}
			ids = append(ids, parsed...)
			continue
		}
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, apperrors.NewFieldValidationError(field, field+" must be a list of ids")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parseTime parses an RFC 3339 timestamp. An empty value or "null" means no time.
func parseTime(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewFieldValidationError(field, field+" must be an RFC 3339 timestamp")
	}
	return &t, nil
}
