package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Nevojt/project-chat-sub000/internal/config"
	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/Nevojt/project-chat-sub000/internal/storage"
)

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

type userModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserName  string `gorm:"size:64;not null"`
	Avatar    string
	Verified  bool
	Blocked   bool
	CreatedAt time.Time
}

func (userModel) TableName() string { return "users" }

type roomModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	NameRoom  string `gorm:"size:128;uniqueIndex;not null"`
	Block     bool
	CreatedAt time.Time
}

func (roomModel) TableName() string { return "rooms" }

type banModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	RoomID    int64 `gorm:"index:idx_bans_room_user;not null"`
	UserID    int64 `gorm:"index:idx_bans_room_user;not null"`
	Until     *time.Time
	CreatedAt time.Time
}

func (banModel) TableName() string { return "bans" }

type messageModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt  time.Time `gorm:"index"`
	ReceiverID int64     `gorm:"index;not null"`
	OwnerID    int64     `gorm:"index;not null"`
	Message    *string   `gorm:"type:text"`
	FileURL    *string
	Edited     bool
	IDReturn   *int64
}

func (messageModel) TableName() string { return "messages" }

type voteModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	MessageID int64 `gorm:"uniqueIndex:idx_votes_message_user;not null"`
	UserID    int64 `gorm:"uniqueIndex:idx_votes_message_user;not null"`
	Rating    int
}

func (voteModel) TableName() string { return "votes" }

// NewStore opens a SQLite database at the provided path.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer.
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db, now: time.Now}, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&userModel{}, &roomModel{}, &banModel{}, &messageModel{}, &voteModel{})
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	model := userModel{
		ID:        int64(user.ID),
		UserName:  user.Name,
		Avatar:    user.Avatar,
		Verified:  user.Verified,
		Blocked:   user.Blocked,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	user.ID = domain.UserID(model.ID)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).First(&model, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &domain.User{
		ID:       domain.UserID(model.ID),
		Name:     model.UserName,
		Avatar:   model.Avatar,
		Verified: model.Verified,
		Blocked:  model.Blocked,
	}, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	if room == nil {
		return errors.New("nil room")
	}
	model := roomModel{
		ID:        int64(room.ID),
		NameRoom:  room.Name,
		Block:     room.Block,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	room.ID = domain.RoomID(model.ID)
	return nil
}

// ResolveRoom looks a room up by numeric id first, then by name.
func (s *Store) ResolveRoom(ctx context.Context, ref string) (*domain.Room, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, core.ErrRoomNotFound
	}

	var model roomModel
	db := s.db.WithContext(ctx)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		err := db.First(&model, id).Error
		if err == nil {
			return roomFromModel(model), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if err := db.Where("name_room = ?", ref).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrRoomNotFound
		}
		return nil, err
	}
	return roomFromModel(model), nil
}

func roomFromModel(m roomModel) *domain.Room {
	return &domain.Room{ID: domain.RoomID(m.ID), Name: m.NameRoom, Block: m.Block}
}

// CheckJoin rejects blocked rooms, blocked identities and users with an
// active ban in the room.
func (s *Store) CheckJoin(ctx context.Context, room *domain.Room, user *domain.User) error {
	if room.Block {
		return core.ErrRoomBlocked
	}
	if user.Blocked {
		return core.ErrUserBlocked
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&banModel{}).
		Where("room_id = ? AND user_id = ?", int64(room.ID), int64(user.ID)).
		Where("(until IS NULL OR until > ?)", s.now().UTC()).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check ban: %w", err)
	}
	if n > 0 {
		return core.ErrUserBanned
	}
	return nil
}

func (s *Store) BanUser(ctx context.Context, room domain.RoomID, user domain.UserID, until *time.Time) error {
	model := banModel{
		RoomID:    int64(room),
		UserID:    int64(user),
		Until:     until,
		CreatedAt: s.now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// Vote records or replaces a user's rating of a message.
func (s *Store) Vote(ctx context.Context, message int64, user domain.UserID, rating int) error {
	model := voteModel{MessageID: message, UserID: int64(user), Rating: rating}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating"}),
	}).Create(&model).Error
}

// Append stores a message in a single insert.
func (s *Store) Append(ctx context.Context, msg domain.Message) (domain.MessageRecord, error) {
	if err := msg.Validate(); err != nil {
		return domain.MessageRecord{}, err
	}
	model := messageModel{
		CreatedAt:  s.now().UTC(),
		ReceiverID: int64(msg.RoomID),
		OwnerID:    int64(msg.SenderID),
		Message:    msg.Body,
		FileURL:    msg.FileURL,
		IDReturn:   msg.ReplyTo,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.MessageRecord{}, fmt.Errorf("append message: %w", err)
	}
	return domain.MessageRecord{
		ID:        model.ID,
		CreatedAt: model.CreatedAt,
		Message:   msg,
	}, nil
}

type messageRow struct {
	ID         int64
	CreatedAt  time.Time
	ReceiverID int64
	OwnerID    int64
	Message    *string
	FileURL    *string
	Edited     bool
	IDReturn   *int64
	UserName   string
	Avatar     string
	Verified   bool
	Votes      int
}

// RecentMessages returns the newest messages of a room first, with sender
// projection and vote total.
func (s *Store) RecentMessages(ctx context.Context, room domain.RoomID, limit, offset int) ([]domain.MessageRecord, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Table("messages AS m").
		Select(`m.id, m.created_at, m.receiver_id, m.owner_id, m.message, m.file_url, m.edited, m.id_return,
			COALESCE(u.user_name, '') AS user_name,
			COALESCE(u.avatar, '') AS avatar,
			COALESCE(u.verified, false) AS verified,
			COALESCE((SELECT SUM(v.rating) FROM votes v WHERE v.message_id = m.id), 0) AS votes`).
		Joins("LEFT JOIN users u ON u.id = m.owner_id").
		Where("m.receiver_id = ?", int64(room)).
		Order("m.created_at DESC, m.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	out := make([]domain.MessageRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.MessageRecord{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Message: domain.Message{
				RoomID:   domain.RoomID(r.ReceiverID),
				SenderID: domain.UserID(r.OwnerID),
				Body:     r.Message,
				FileURL:  r.FileURL,
				ReplyTo:  r.IDReturn,
			},
			Sender: domain.Presence{
				UserID:   domain.UserID(r.OwnerID),
				UserName: r.UserName,
				Avatar:   r.Avatar,
				Verified: r.Verified,
			},
			Edited: r.Edited,
			Votes:  r.Votes,
		})
	}
	return out, nil
}
