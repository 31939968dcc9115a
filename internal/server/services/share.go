package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/mailer"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// shareTokenBytes of randomness back every share token (64 hex chars).
const shareTokenBytes = 32

type ShareLinkInput struct {
	Permission models.Permission
	ExpiresAt  *time.Time
	Password   string
	Emails     []string
}

type ShareLinkResult struct {
	Token    string `json:"token"`
	ShareURL string `json:"shareUrl"`
}

// ShareAccess is the outcome of a successful link validation.
type ShareAccess struct {
	File       *models.FileRecord
	Link       *models.ShareLink
	Permission models.Permission
}

// SharedDownload is ShareAccess plus the decrypted content.
type SharedDownload struct {
	ShareAccess
	Data []byte
}

// ShareService issues and validates share links.
type ShareService struct {
	files  *FileService
	mail   mailer.Sender
	appURL string
	log    logging.Logger
}

func NewShareService(files *FileService, mail mailer.Sender, appURL string, log logging.Logger) *ShareService {
	return &ShareService{
		files:  files,
		mail:   mail,
		appURL: strings.TrimRight(appURL, "/"),
		log:    log.With("module", "share"),
	}
}

// ShareURL is the public address of token.
func (s *ShareService) ShareURL(token string) string {
	return s.appURL + "/share/" + token
}

// CreateShareLink appends a new link to an owned file. Restricted
// recipients are emailed after the link is stored; mail failures are only
// logged.
func (s *ShareService) CreateShareLink(ctx context.Context, id models.Identity, fileID string, in ShareLinkInput) (res *ShareLinkResult, err error) {
	defer func() {
		if err != nil {
			metrics.ShareLinksTotal.WithLabelValues(result(err)).Inc()
		}
	}()

	rec, err := s.files.load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.IsOwner(id.UserID) {
		return nil, common.ErrAccessDenied
	}

	perm := in.Permission
	if perm == "" {
		perm = models.PermissionView
	}
	if !perm.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", common.ErrInvalidArgument, perm)
	}
	emails, err := normalizeEmails(in.Emails)
	if err != nil {
		return nil, err
	}

	token, err := common.MakeRandHexString(shareTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("share token: %w", err)
	}

	link := &models.ShareLink{
		Token:      token,
		FileID:     rec.ID,
		CreatedBy:  id.UserID,
		Permission: perm,
		ExpiresAt:  in.ExpiresAt,
		Emails:     emails,
		CreatedAt:  s.files.now(),
	}
	if in.Password != "" {
		if link.PasswordHash, err = cryptox.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.files.store.Files().AddShareLink(ctx, link); err != nil {
		return nil, fmt.Errorf("add share link: %w", err)
	}
	metrics.ShareLinksTotal.WithLabelValues("created").Inc()

	res = &ShareLinkResult{Token: token, ShareURL: s.ShareURL(token)}
	s.log.Info(ctx, "share link created", "file_id", rec.ID, "token", tokenPrefix(token), "recipients", len(emails))
	s.notifyRecipients(ctx, id, rec, link, res.ShareURL)
	return res, nil
}

func (s *ShareService) notifyRecipients(ctx context.Context, id models.Identity, rec *models.FileRecord, link *models.ShareLink, shareURL string) {
	sender := strings.TrimSpace(id.FirstName)
	subject := "A file was shared with you"
	if sender != "" {
		subject = sender + " shared a file with you"
	}

	data := map[string]any{
		"fileName":   rec.Name,
		"shareUrl":   shareURL,
		"senderName": sender,
	}
	if link.ExpiresAt != nil {
		data["expiresAt"] = link.ExpiresAt.UTC().Format(time.RFC1123)
	}

	for _, email := range link.Emails {
		msg := mailer.Message{To: []string{email}, Subject: subject, Template: mailer.TemplateFileShare, Data: data}
		if err := s.mail.Send(ctx, msg); err != nil {
			s.log.Warn(ctx, "share email not sent", "file_id", rec.ID, "error", err)
		}
	}
}

// ValidateShareLink resolves token to its file. Expiry is checked before
// the password; a link on a trashed file is not found.
func (s *ShareService) ValidateShareLink(ctx context.Context, token, password string) (access *ShareAccess, err error) {
	defer func() {
		r := metrics.ResultOK
		if err != nil {
			r = result(err)
		}
		metrics.ShareLinksTotal.WithLabelValues(r).Inc()
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, common.ErrorNotFound
	}

	link, err := s.files.store.Files().GetShareLink(ctx, token)
	if err != nil {
		return nil, err
	}
	rec, err := s.files.load(ctx, link.FileID)
	if err != nil {
		return nil, err
	}
	if rec.IsDeleted() {
		return nil, common.ErrorNotFound
	}

	if link.Expired(s.files.now()) {
		return nil, common.ErrShareLinkExpired
	}
	if link.HasPassword() {
		ok, err := cryptox.CheckPassword(link.PasswordHash, password)
		if err != nil {
			return nil, fmt.Errorf("check share password: %w", err)
		}
		if !ok {
			s.log.Info(ctx, "wrong share password", "token", tokenPrefix(token))
			return nil, common.ErrWrongPassword
		}
	}

	return &ShareAccess{File: rec, Link: link, Permission: link.Permission}, nil
}

// OpenShareLink validates the link, applies its restricted-email list to
// visitorEmail and returns the decrypted content.
func (s *ShareService) OpenShareLink(ctx context.Context, token, password, visitorEmail string) (d *SharedDownload, err error) {
	defer func() {
		if err != nil {
			metrics.DownloadsTotal.WithLabelValues(result(err)).Inc()
		}
	}()

	access, err := s.ValidateShareLink(ctx, token, password)
	if err != nil {
		return nil, err
	}
	if !access.Link.AllowsEmail(visitorEmail) {
		return nil, common.ErrEmailNotAllowed
	}

	dl, err := s.files.fetch(ctx, access.File)
	if err != nil {
		return nil, err
	}
	metrics.DownloadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	access.File = dl.File
	return &SharedDownload{ShareAccess: *access, Data: dl.Data}, nil
}

func normalizeEmails(emails []string) ([]string, error) {
	out := []string{}
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		addr, err := mail.ParseAddress(e)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", common.ErrInvalidArgument, e)
		}
		key := strings.ToLower(addr.Address)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr.Address)
	}
	return out, nil
}

func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
