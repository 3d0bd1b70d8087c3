package stores

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hackai/chatd/models"
)

// ChatRow is the chats table. Deleting a chat cascades to its messages and
// their parts.
type ChatRow struct {
	ID        string `gorm:"primaryKey;size:32"`
	UserID    string `gorm:"column:user_id;index:chat_user_id_idx;not null"`
	Title     string `gorm:"not null"`
	Icon      string `gorm:"not null"`
	LastModel string `gorm:"column:last_model;not null"`
	IsPublic  bool   `gorm:"column:is_public;not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []MessageRow `gorm:"foreignKey:ChatID;references:ID;constraint:OnDelete:CASCADE"`
}

func (ChatRow) TableName() string { return "chats" }

// MessageRow is the messages table. Metadata is stored as JSON and
// marshalled through gorm hooks.
type MessageRow struct {
	ID           string `gorm:"primaryKey"`
	ChatID       string `gorm:"column:chat_id;index:messages_chat_id_idx;not null"`
	Role         string `gorm:"not null"`
	MetadataJSON string `gorm:"column:metadata;type:json"`
	CreatedAt    time.Time

	Metadata *models.Metadata `gorm:"-"`

	Parts []PartRow `gorm:"foreignKey:MessageID;references:ID;constraint:OnDelete:CASCADE"`
}

func (MessageRow) TableName() string { return "messages" }

// BeforeSave marshals Metadata to MetadataJSON.
func (m *MessageRow) BeforeSave(tx *gorm.DB) error {
	if m.Metadata != nil {
		data, err := json.Marshal(m.Metadata)
		if err != nil {
			return err
		}
		m.MetadataJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals MetadataJSON to Metadata.
func (m *MessageRow) AfterFind(tx *gorm.DB) error {
	if m.MetadataJSON != "" && m.MetadataJSON != "null" {
		m.Metadata = &models.Metadata{}
		return json.Unmarshal([]byte(m.MetadataJSON), m.Metadata)
	}
	return nil
}

// PartRow is the parts table: one flat row shape for every part kind, with
// all kind-specific columns nullable and the type tag deciding which subset
// must be non-null. The named CHECK constraints enforce that subset at the
// database, matching the checks PartFromRow performs on read.
type PartRow struct {
	ID        string `gorm:"primaryKey"`
	MessageID string `gorm:"column:message_id;index:parts_message_id_idx;index:parts_message_id_order_idx,priority:1;not null"`
	Order     int    `gorm:"column:order;index:parts_message_id_order_idx,priority:2;not null;default:0"`

	Type string `gorm:"not null"`

	Text *string `gorm:"check:text_required_if_type_is_text_or_reasoning,type NOT IN ('text','reasoning') OR text IS NOT NULL"`

	FileMediaType *string `gorm:"column:file_media_type;check:file_fields_required_if_type_is_file,type <> 'file' OR (file_media_type IS NOT NULL AND file_url IS NOT NULL)"`
	FileFilename  *string `gorm:"column:file_filename"`
	FileURL       *string `gorm:"column:file_url"`

	SourceURLSourceID *string `gorm:"column:source_url_source_id;check:source_url_fields_required_if_type_is_source_url,type <> 'source-url' OR (source_url_source_id IS NOT NULL AND source_url_url IS NOT NULL)"`
	SourceURLURL      *string `gorm:"column:source_url_url"`
	SourceURLTitle    *string `gorm:"column:source_url_title"`

	SourceDocumentSourceID  *string `gorm:"column:source_document_source_id;check:source_document_fields_required_if_type_is_source_document,type <> 'source-document' OR (source_document_source_id IS NOT NULL AND source_document_media_type IS NOT NULL AND source_document_title IS NOT NULL)"`
	SourceDocumentMediaType *string `gorm:"column:source_document_media_type"`
	SourceDocumentTitle     *string `gorm:"column:source_document_title"`
	SourceDocumentFilename  *string `gorm:"column:source_document_filename"`

	ProviderMetadataJSON string `gorm:"column:provider_metadata;type:json"`

	ProviderMetadata map[string]interface{} `gorm:"-"`
}

func (PartRow) TableName() string { return "parts" }

// BeforeSave marshals ProviderMetadata to ProviderMetadataJSON.
func (p *PartRow) BeforeSave(tx *gorm.DB) error {
	if p.ProviderMetadata != nil {
		data, err := json.Marshal(p.ProviderMetadata)
		if err != nil {
			return err
		}
		p.ProviderMetadataJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals ProviderMetadataJSON to ProviderMetadata.
func (p *PartRow) AfterFind(tx *gorm.DB) error {
	if p.ProviderMetadataJSON != "" && p.ProviderMetadataJSON != "null" {
		return json.Unmarshal([]byte(p.ProviderMetadataJSON), &p.ProviderMetadata)
	}
	return nil
}

// MalformedPartError means a stored part row is missing a field its kind
// requires. It indicates a bug in the writer; readers must propagate it as
// a hard failure, never drop the part.
type MalformedPartError struct {
	PartType string
	Field    string
}

func (e *MalformedPartError) Error() string {
	return fmt.Sprintf("malformed %s part: missing %s", e.PartType, e.Field)
}

func strPtr(s string) *string { return &s }

func optPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// PartToRow maps a part to its flat row shape at the given position. It is
// total: every valid part maps to a row, and Order is always set to order.
func PartToRow(p models.Part, messageID string, order int) PartRow {
	row := PartRow{
		MessageID:        messageID,
		Order:            order,
		Type:             string(p.Type),
		ProviderMetadata: p.ProviderMetadata,
	}

	switch p.Type {
	case models.PartTypeText, models.PartTypeReasoning:
		row.Text = strPtr(p.Text)
	case models.PartTypeFile:
		row.FileMediaType = strPtr(p.MediaType)
		row.FileFilename = optPtr(p.Filename)
		row.FileURL = strPtr(p.URL)
	case models.PartTypeSourceURL:
		row.SourceURLSourceID = strPtr(p.SourceID)
		row.SourceURLURL = strPtr(p.URL)
		row.SourceURLTitle = optPtr(p.Title)
	case models.PartTypeSourceDocument:
		row.SourceDocumentSourceID = strPtr(p.SourceID)
		row.SourceDocumentMediaType = strPtr(p.MediaType)
		row.SourceDocumentTitle = strPtr(p.Title)
		row.SourceDocumentFilename = optPtr(p.Filename)
	case models.PartTypeStepStart:
		// marker row, no payload columns
	}

	return row
}

// PartFromRow maps a row back to a part, failing with *MalformedPartError
// when a required field for the row's declared kind is null.
func PartFromRow(row PartRow) (models.Part, error) {
	kind := models.PartType(row.Type)

	switch kind {
	case models.PartTypeText, models.PartTypeReasoning:
		if row.Text == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "text"}
		}
		p := models.Part{Type: kind, Text: *row.Text}
		p.ProviderMetadata = row.ProviderMetadata
		return p, nil

	case models.PartTypeFile:
		if row.FileMediaType == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "file_media_type"}
		}
		if row.FileURL == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "file_url"}
		}
		return models.FilePart(*row.FileMediaType, deref(row.FileFilename), *row.FileURL), nil

	case models.PartTypeSourceURL:
		if row.SourceURLSourceID == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "source_url_source_id"}
		}
		if row.SourceURLURL == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "source_url_url"}
		}
		p := models.SourceURLPart(*row.SourceURLSourceID, *row.SourceURLURL, deref(row.SourceURLTitle))
		p.ProviderMetadata = row.ProviderMetadata
		return p, nil

	case models.PartTypeSourceDocument:
		if row.SourceDocumentSourceID == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "source_document_source_id"}
		}
		if row.SourceDocumentMediaType == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "source_document_media_type"}
		}
		if row.SourceDocumentTitle == nil {
			return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "source_document_title"}
		}
		p := models.SourceDocumentPart(*row.SourceDocumentSourceID, *row.SourceDocumentMediaType,
			*row.SourceDocumentTitle, deref(row.SourceDocumentFilename))
		p.ProviderMetadata = row.ProviderMetadata
		return p, nil

	case models.PartTypeStepStart:
		return models.StepStartPart(), nil

	default:
		return models.Part{}, &MalformedPartError{PartType: row.Type, Field: "type"}
	}
}
