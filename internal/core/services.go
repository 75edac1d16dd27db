package core

import (
	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
)

type Services struct {
	Auth            *AuthService
	User            *UserService
	Domain          *DomainService
	CustomDomain    *CustomDomainService
	Mailbox         *MailboxService
	Alias           *AliasService
	SendingLimit    *SendingLimitService
	SendingTier     *SendingTierService
	ScheduledAction *ScheduledActionService
	Audit           *AuditService
	Announcement    *AnnouncementService
	SupportTicket   *SupportTicketService
	UserGroup       *UserGroupService
	UserTemplate    *UserTemplateService
	Storage         *StorageService
	LoginActivity   *LoginActivityService
}

// ServicesConfig carries the secrets the services need beyond their
// database and control plane handles.
type ServicesConfig struct {
	JWTSecret     string
	JWTIssuer     string
	EncryptionKey string
}

func NewServices(db DB, mc *mailcow.Client, cfg ServicesConfig) *Services {
	return &Services{
		Auth:            NewAuthService(db, cfg.JWTSecret, cfg.JWTIssuer),
		User:            NewUserService(db, mc, cfg.EncryptionKey),
		Domain:          NewDomainService(db, mc),
		CustomDomain:    NewCustomDomainService(db),
		Mailbox:         NewMailboxService(db, mc),
		Alias:           NewAliasService(db, mc),
		SendingLimit:    NewSendingLimitService(db),
		SendingTier:     NewSendingTierService(db),
		ScheduledAction: NewScheduledActionService(db),
		Audit:           NewAuditService(db),
		Announcement:    NewAnnouncementService(db),
		SupportTicket:   NewSupportTicketService(db),
		UserGroup:       NewUserGroupService(db),
		UserTemplate:    NewUserTemplateService(db),
		Storage:         NewStorageService(db),
		LoginActivity:   NewLoginActivityService(db),
	}
}
