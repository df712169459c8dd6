package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	JournalRepository      *JournalRepository
	TagRepository          *TagRepository
	AttachmentRepository   *AttachmentRepository
	NotificationRepository *NotificationRepository
	PreferenceRepository   *PreferenceRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(db),
		JournalRepository:      NewJournalRepository(db),
		TagRepository:          NewTagRepository(db),
		AttachmentRepository:   NewAttachmentRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		PreferenceRepository:   NewPreferenceRepository(db),
	}
}
