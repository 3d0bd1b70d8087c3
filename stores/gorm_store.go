package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackai/chatd/logger"
	"github.com/hackai/chatd/models"
)

// gormStore implements ChatStore on any gorm dialect. The postgres and
// sqlite variants embed it and only differ in how they open the database.
type gormStore struct {
	db    *gorm.DB
	log   *logger.Logger
	cache ChatListCache
}

func newGormStore(db *gorm.DB, log *logger.Logger, cache ChatListCache) (*gormStore, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if cache == nil {
		cache = NopChatListCache{}
	}
	if err := db.AutoMigrate(&ChatRow{}, &MessageRow{}, &PartRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return &gormStore{db: db, log: log, cache: cache}, nil
}

// newChatID returns a fresh 32-character chat identifier.
func newChatID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *gormStore) CreateChat(ctx context.Context, userID string) (models.Chat, error) {
	row := ChatRow{
		ID:        newChatID(),
		UserID:    userID,
		Title:     models.DefaultChatTitle,
		Icon:      models.DefaultChatIcon,
		LastModel: models.DefaultModel,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Chat{}, fmt.Errorf("failed to create chat: %w", err)
	}
	s.cache.Invalidate(ctx, userID)
	return chatFromRow(row, nil), nil
}

func (s *gormStore) LoadChat(ctx context.Context, chatID, viewerID string) (LoadResult, error) {
	var row ChatRow
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Messages.Parts", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}})
		}).
		First(&row, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LoadResult{Type: LoadResultNotFound}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to load chat: %w", err)
	}

	// A chat without an owner is local data; whoever reaches the store
	// may read and edit it.
	isOwner := row.UserID == "" || (viewerID != "" && row.UserID == viewerID)
	if !row.IsPublic && !isOwner {
		if viewerID == "" {
			return LoadResult{Type: LoadResultUnauthorized}, nil
		}
		return LoadResult{Type: LoadResultForbidden}, nil
	}

	msgs := make([]models.Message, 0, len(row.Messages))
	for _, mr := range row.Messages {
		msg := models.Message{
			ID:       mr.ID,
			Role:     models.Role(mr.Role),
			Metadata: mr.Metadata,
		}
		for _, pr := range mr.Parts {
			part, err := PartFromRow(pr)
			if err != nil {
				// Data-integrity fault: a writer stored an invalid row.
				return LoadResult{}, err
			}
			msg.Parts = append(msg.Parts, part)
		}
		msgs = append(msgs, msg)
	}

	chat := chatFromRow(row, msgs)
	return LoadResult{Type: LoadResultChat, Chat: &chat, Editable: isOwner}, nil
}

func (s *gormStore) UpsertMessage(ctx context.Context, chatID string, msg models.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message id is required")
	}

	rows := make([]PartRow, 0, len(msg.Parts))
	for i, part := range msg.Parts {
		row := PartToRow(part, msg.ID, i)
		row.ID = uuid.NewString()
		rows = append(rows, row)
	}

	var ownerID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// First message of a local chat may land before the chat row does.
		var chat ChatRow
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			chat = ChatRow{
				ID:        chatID,
				Title:     models.DefaultChatTitle,
				Icon:      models.DefaultChatIcon,
				LastModel: models.DefaultModel,
			}
			if err := tx.Create(&chat).Error; err != nil {
				return err
			}
		}
		ownerID = chat.UserID

		metadataJSON := ""
		if msg.Metadata != nil {
			row := MessageRow{Metadata: msg.Metadata}
			if err := row.BeforeSave(tx); err != nil {
				return err
			}
			metadataJSON = row.MetadataJSON
		}

		msgRow := MessageRow{
			ID:           msg.ID,
			ChatID:       chatID,
			Role:         string(msg.Role),
			MetadataJSON: metadataJSON,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chat_id", "metadata"}),
		}).Create(&msgRow)
		if res.Error != nil {
			return res.Error
		}

		// Full replacement of the part set: delete-then-reinsert so no
		// concurrent reader ever sees a partial set.
		if err := tx.Where("message_id = ?", msg.ID).Delete(&PartRow{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		return tx.Model(&ChatRow{}).Where("id = ?", chatID).
			UpdateColumn("updated_at", time.Now()).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	if ownerID != "" {
		s.cache.Invalidate(ctx, ownerID)
	}
	return nil
}

func (s *gormStore) DeleteMessagesAfter(ctx context.Context, chatID, messageID string, inclusive bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target MessageRow
		err := tx.First(&target, "id = ? AND chat_id = ?", messageID, chatID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var victims []MessageRow
		if err := tx.Select("id").
			Where("chat_id = ? AND created_at > ?", chatID, target.CreatedAt).
			Find(&victims).Error; err != nil {
			return err
		}
		ids := make([]string, 0, len(victims)+1)
		for _, v := range victims {
			ids = append(ids, v.ID)
		}
		if inclusive {
			ids = append(ids, target.ID)
		}
		if len(ids) == 0 {
			return nil
		}

		// Children before parents: sqlite may run without FK cascades.
		if err := tx.Where("message_id IN ?", ids).Delete(&PartRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&MessageRow{}).Error; err != nil {
			return err
		}

		return tx.Model(&ChatRow{}).Where("id = ?", chatID).
			UpdateColumn("updated_at", time.Now()).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete messages after %s: %w", messageID, err)
	}

	s.invalidateForChat(ctx, chatID)
	return nil
}

func (s *gormStore) SetLastModel(ctx context.Context, chatID, model string) error {
	if err := s.db.WithContext(ctx).Model(&ChatRow{}).Where("id = ?", chatID).
		Update("last_model", model).Error; err != nil {
		return fmt.Errorf("failed to set last model: %w", err)
	}
	s.invalidateForChat(ctx, chatID)
	return nil
}

func (s *gormStore) RenameChat(ctx context.Context, chatID, icon, title string) error {
	if err := s.db.WithContext(ctx).Model(&ChatRow{}).Where("id = ?", chatID).
		Updates(map[string]interface{}{"icon": icon, "title": title}).Error; err != nil {
		return fmt.Errorf("failed to rename chat: %w", err)
	}
	s.invalidateForChat(ctx, chatID)
	return nil
}

func (s *gormStore) SetPublicity(ctx context.Context, chatID string, public bool) error {
	if err := s.db.WithContext(ctx).Model(&ChatRow{}).Where("id = ?", chatID).
		Update("is_public", public).Error; err != nil {
		return fmt.Errorf("failed to set publicity: %w", err)
	}
	s.invalidateForChat(ctx, chatID)
	return nil
}

func (s *gormStore) DeleteChat(ctx context.Context, chatID string) error {
	var ownerID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat ChatRow
		err := tx.First(&chat, "id = ?", chatID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ownerID = chat.UserID

		var msgs []MessageRow
		if err := tx.Select("id").Where("chat_id = ?", chatID).Find(&msgs).Error; err != nil {
			return err
		}
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		if len(ids) > 0 {
			if err := tx.Where("message_id IN ?", ids).Delete(&PartRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ids).Delete(&MessageRow{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&ChatRow{}, "id = ?", chatID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	if ownerID != "" {
		s.cache.Invalidate(ctx, ownerID)
	}
	return nil
}

func (s *gormStore) DeleteAllChats(ctx context.Context, userID string) error {
	var chats []ChatRow
	if err := s.db.WithContext(ctx).Select("id").Where("user_id = ?", userID).
		Find(&chats).Error; err != nil {
		return fmt.Errorf("failed to list chats for deletion: %w", err)
	}
	for _, c := range chats {
		if err := s.DeleteChat(ctx, c.ID); err != nil {
			return err
		}
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

func (s *gormStore) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	var rows []ChatRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	chats := make([]models.Chat, 0, len(rows))
	for _, row := range rows {
		chats = append(chats, chatFromRow(row, nil))
	}
	s.cache.Set(ctx, userID, chats)
	return chats, nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// invalidateForChat looks up the chat's owner and drops their cached list.
func (s *gormStore) invalidateForChat(ctx context.Context, chatID string) {
	var chat ChatRow
	if err := s.db.WithContext(ctx).Select("user_id").First(&chat, "id = ?", chatID).Error; err != nil {
		return
	}
	if chat.UserID != "" {
		s.cache.Invalidate(ctx, chat.UserID)
	}
}

func chatFromRow(row ChatRow, msgs []models.Message) models.Chat {
	return models.Chat{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Icon:      row.Icon,
		LastModel: row.LastModel,
		IsPublic:  row.IsPublic,
		Messages:  msgs,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
