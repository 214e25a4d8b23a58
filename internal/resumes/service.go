package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/extract"
	"resume-builder/internal/notify"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/storage/object"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/validation"
	"resume-builder/internal/users"
	"resume-builder/resume/access"
	"resume-builder/resume/model"
	"resume-builder/resume/render"
	"resume-builder/resume/share"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	anonymousOwnerName    = "Resume Builder User"
)

var (
	ErrUnsupportedFile = errors.New("only PDF, DOC and DOCX files are allowed")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoOriginalFile  = errors.New("resume has no original file")
	ErrUnknownFormat   = errors.New("unknown export format")
)

// uploadTypes maps accepted extensions to the content type served back.
var uploadTypes = map[string]string{
	".pdf":  extract.MimePDF,
	".doc":  extract.MimeDOC,
	".docx": extract.MimeDOCX,
}

// Actor is the caller of a resume operation. The zero value is anonymous.
type Actor struct {
	UserID string
	Name   string
	Email  string
}

func (a Actor) Principal() access.Principal {
	return access.Principal{UserID: a.UserID}
}

// OwnerLookup resolves resume owners for public views.
type OwnerLookup interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// Owner is the public face of a resume owner.
type Owner struct {
	Name string `json:"name"`
}

// SharedResume is a resume read through a share token.
type SharedResume struct {
	model.Resume
	Owner Owner `json:"owner"`
}

// ShareLink is the response to issuing a share token.
type ShareLink struct {
	Token     string    `json:"shareToken"`
	URL       string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Export is a rendered document ready to be served.
type Export struct {
	Body        []byte
	ContentType string
	Filename    string
}

type Service struct {
	Repo           Repo
	Store          object.ObjectStore
	Owners         OwnerLookup
	Notify         notify.Publisher
	Shares         *share.Manager
	PublicAppURL   string
	MaxUploadBytes int64
	TempDir        string
	Now            func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, owners OwnerLookup, pub notify.Publisher, publicAppURL string) *Service {
	if pub == nil {
		pub = notify.Discard{}
	}
	shares := share.NewManager()
	svc := &Service{
		Repo:           repo,
		Store:          store,
		Owners:         owners,
		Notify:         pub,
		Shares:         shares,
		PublicAppURL:   publicAppURL,
		MaxUploadBytes: DefaultMaxUploadBytes,
		Now:            time.Now,
	}
	shares.Now = svc.now
	return svc
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// List returns the caller's resumes as summaries, most recently updated first.
func (s *Service) List(ctx context.Context, actor Actor) ([]model.Summary, error) {
	list, err := s.Repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Summary, 0, len(list))
	for _, r := range list {
		out = append(out, model.Summarize(r))
	}
	return out, nil
}

// Create stores a new resume owned by actor. Identity, sharing and upload
// fields in the input are ignored.
func (s *Service) Create(ctx context.Context, actor Actor, in model.Resume) (model.Resume, error) {
	now := s.now()
	in.ID = uuid.NewString()
	in.UserID = actor.UserID
	in.ShareToken, in.ShareExpiry, in.OriginalFile = nil, nil, nil
	in.CreatedAt, in.UpdatedAt = now, now
	in.Normalize()
	if err := in.Validate(); err != nil {
		return model.Resume{}, err
	}
	if err := s.Repo.Create(ctx, in); err != nil {
		return model.Resume{}, err
	}
	s.publish(notify.KindResumeCreated, actor, in.Title, nil)
	return in, nil
}

// Get returns a resume the actor may read: their own or a public one.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (model.Resume, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return model.Resume{}, err
	}
	if err := access.CanRead(r, actor.Principal()); err != nil {
		return model.Resume{}, err
	}
	return r, nil
}

func (s *Service) owned(ctx context.Context, actor Actor, id string) (model.Resume, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return model.Resume{}, err
	}
	if err := access.CanWrite(r, actor.Principal()); err != nil {
		return model.Resume{}, err
	}
	return r, nil
}

// Update replaces the top-level fields present in patch. Nothing is written
// when validation fails.
func (s *Service) Update(ctx context.Context, actor Actor, id string, patch model.Patch) (model.Resume, error) {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return model.Resume{}, err
	}
	updated, err := patch.Apply(&r)
	if err != nil {
		return model.Resume{}, err
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return model.Resume{}, err
	}
	r.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, r); err != nil {
		return model.Resume{}, err
	}
	s.publish(notify.KindResumeUpdated, actor, r.Title, updated)
	return r, nil
}

// SetTemplate changes the export preset.
func (s *Service) SetTemplate(ctx context.Context, actor Actor, id string, tmpl model.Template) (model.Resume, error) {
	if tmpl == "" {
		return model.Resume{}, validation.New("template", "Please provide a template")
	}
	if !tmpl.Valid() {
		return model.Resume{}, validation.New("template", "must be one of modern classic minimal professional creative")
	}
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return model.Resume{}, err
	}
	r.Template = tmpl
	r.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, r); err != nil {
		return model.Resume{}, err
	}
	s.publish(notify.KindResumeUpdated, actor, r.Title, []string{"template"})
	return r, nil
}

// Delete removes a resume and its uploaded original.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	s.removeOriginal(ctx, r)
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(notify.KindResumeDeleted, actor, r.Title, nil)
	return nil
}

// DeleteAllForUser removes every resume of a user along with their uploads.
// It runs when the account itself is deleted.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) error {
	list, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, r := range list {
		s.removeOriginal(ctx, r)
	}
	n, err := s.Repo.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	telemetry.Info("resumes.deleted_for_user", map[string]any{"user_id": userID, "count": n})
	return nil
}

// ListForUser returns a user's resumes without an ownership check. Admin only.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.Summary, error) {
	return s.List(ctx, Actor{UserID: userID})
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.Repo.CountAll(ctx)
}

func (s *Service) removeOriginal(ctx context.Context, r model.Resume) {
	if r.OriginalFile == nil || r.OriginalFile.StorageID == "" || s.Store == nil {
		return
	}
	key := r.OriginalFile.StorageID
	for _, k := range []string{key, extract.TextKey(key)} {
		if err := s.Store.Delete(ctx, k); err != nil {
			telemetry.Warn("resumes.original_delete_failed", map[string]any{
				"resume_id": r.ID,
				"key":       k,
				"error":     err.Error(),
			})
		}
	}
}

// Export renders a readable resume in the requested format.
func (s *Service) Export(ctx context.Context, actor Actor, id, format string) (Export, error) {
	renderer, ok := render.ForFormat(format)
	if !ok {
		return Export{}, ErrUnknownFormat
	}
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return Export{}, err
	}

	start := time.Now()
	body, err := renderer.Render(r)
	if err != nil {
		metrics.IncExportFailed(format)
		telemetry.Error("resumes.export_failed", map[string]any{
			"resume_id": r.ID,
			"format":    format,
			"error":     err.Error(),
		})
		return Export{}, err
	}
	metrics.IncExport(format)
	metrics.ObserveExportDurationMs(float64(time.Since(start).Milliseconds()))

	return Export{
		Body:        body,
		ContentType: renderer.ContentType(),
		Filename:    render.Filename(r.Title, renderer.Extension()),
	}, nil
}

// Share always rotates the token: a fresh one replaces any previous link.
func (s *Service) Share(ctx context.Context, actor Actor, id string) (ShareLink, error) {
	return s.issueShare(ctx, actor, id, s.Shares.Generate)
}

// EnsureShare keeps a live token and issues one only when none is valid.
func (s *Service) EnsureShare(ctx context.Context, actor Actor, id string) (ShareLink, model.Resume, error) {
	var out model.Resume
	link, err := s.issueShare(ctx, actor, id, func(r *model.Resume) (share.Grant, error) {
		g, err := s.Shares.Ensure(r)
		out = *r
		return g, err
	})
	return link, out, err
}

func (s *Service) issueShare(ctx context.Context, actor Actor, id string, issue func(*model.Resume) (share.Grant, error)) (ShareLink, error) {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return ShareLink{}, err
	}
	// A token collision is astronomically unlikely; one retry covers it.
	for attempt := 0; ; attempt++ {
		grant, err := issue(&r)
		if err != nil {
			return ShareLink{}, err
		}
		if grant.Reused {
			return s.link(grant), nil
		}
		r.UpdatedAt = s.now()
		err = s.Repo.Update(ctx, r)
		if errors.Is(err, ErrTokenConflict) && attempt == 0 {
			share.Revoke(&r)
			continue
		}
		if err != nil {
			return ShareLink{}, err
		}
		metrics.IncShareCreated()
		return s.link(grant), nil
	}
}

func (s *Service) link(g share.Grant) ShareLink {
	return ShareLink{Token: g.Token, URL: share.URL(s.PublicAppURL, g.Token), ExpiresAt: g.ExpiresAt}
}

// RevokeShare clears the share token. Revoking an unshared resume succeeds.
func (s *Service) RevokeShare(ctx context.Context, actor Actor, id string) error {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if r.ShareToken == nil && r.ShareExpiry == nil {
		return nil
	}
	share.Revoke(&r)
	r.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, r); err != nil {
		return err
	}
	metrics.IncShareRevoked()
	return nil
}

// GetShared resolves a live share token. Unknown, expired and revoked tokens
// all yield ErrNotFound.
func (s *Service) GetShared(ctx context.Context, token string) (SharedResume, error) {
	shared, err := s.ResolveShare(ctx, token)
	if err != nil {
		return SharedResume{}, err
	}
	metrics.IncSharedView()
	return shared, nil
}

// ResolveShare is GetShared without counting a view.
func (s *Service) ResolveShare(ctx context.Context, token string) (SharedResume, error) {
	r, err := s.Repo.GetByShareToken(ctx, strings.TrimSpace(token), s.now())
	if err != nil {
		return SharedResume{}, err
	}
	return SharedResume{Resume: r, Owner: Owner{Name: s.ownerName(ctx, r.UserID)}}, nil
}

func (s *Service) ownerName(ctx context.Context, userID string) string {
	if s.Owners == nil {
		return anonymousOwnerName
	}
	u, err := s.Owners.GetByID(ctx, userID)
	if err != nil || strings.TrimSpace(u.Name) == "" {
		return anonymousOwnerName
	}
	return u.Name
}

// UploadInput describes an uploaded source document.
type UploadInput struct {
	Filename string
	Title    string
	Template model.Template
	Body     io.Reader
}

// Upload stores an existing resume file and creates a resume that points at
// it. Text extraction runs best-effort afterwards.
func (s *Service) Upload(ctx context.Context, actor Actor, in UploadInput) (model.Resume, error) {
	ext := strings.ToLower(filepath.Ext(in.Filename))
	contentType, ok := uploadTypes[ext]
	if !ok {
		return model.Resume{}, ErrUnsupportedFile
	}
	if in.Template != "" && !in.Template.Valid() {
		return model.Resume{}, validation.New("template", "must be one of modern classic minimal professional creative")
	}

	tmp, size, err := s.spool(in.Body)
	if err != nil {
		return model.Resume{}, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()
	if size == 0 {
		return model.Resume{}, validation.New("resume", "Please upload a resume file")
	}

	key, _, _, err := s.Store.Save(ctx, actor.UserID, in.Filename, tmp)
	if err != nil {
		return model.Resume{}, fmt.Errorf("store upload: %w", err)
	}
	metrics.IncUpload()

	now := s.now()
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Uploaded Resume - " + now.Format("2006-01-02")
	}
	r := model.Resume{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		Title:     title,
		Template:  in.Template,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.OriginalFile = &model.OriginalFile{
		URL:       "/api/resumes/" + r.ID + "/original",
		StorageID: key,
		Filename:  filepath.Base(in.Filename),
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		_ = s.Store.Delete(ctx, key)
		return model.Resume{}, err
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		_ = s.Store.Delete(ctx, key)
		return model.Resume{}, err
	}

	if _, err := extract.ExtractAndStore(ctx, s.Store, key, contentType, in.Filename); err != nil {
		metrics.IncExtractFailed()
		telemetry.Warn("resumes.extract_failed", map[string]any{
			"resume_id": r.ID,
			"error":     err.Error(),
		})
	}

	s.publish(notify.KindResumeCreated, actor, r.Title, nil)
	return r, nil
}

// spool copies the upload to a temp file so the size is known before it
// reaches the object store. The caller removes the file.
func (s *Service) spool(body io.Reader) (*os.File, int64, error) {
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	tmp, err := os.CreateTemp(s.TempDir, "resume-upload-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create temp file: %w", err)
	}
	size, err := io.Copy(tmp, io.LimitReader(body, limit+1))
	if err == nil && size > limit {
		err = ErrFileTooLarge
	}
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, 0, err
	}
	return tmp, size, nil
}

// OpenOriginal streams the uploaded source document of a readable resume.
func (s *Service) OpenOriginal(ctx context.Context, actor Actor, id string) (io.ReadCloser, model.OriginalFile, string, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, model.OriginalFile{}, "", err
	}
	if r.OriginalFile == nil || r.OriginalFile.StorageID == "" {
		return nil, model.OriginalFile{}, "", ErrNoOriginalFile
	}
	rc, err := s.Store.Open(ctx, r.OriginalFile.StorageID)
	if errors.Is(err, object.ErrNotFound) {
		return nil, model.OriginalFile{}, "", ErrNoOriginalFile
	}
	if err != nil {
		return nil, model.OriginalFile{}, "", err
	}
	contentType := uploadTypes[strings.ToLower(filepath.Ext(r.OriginalFile.Filename))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, *r.OriginalFile, contentType, nil
}

func (s *Service) publish(kind notify.Kind, actor Actor, title string, fields []string) {
	s.Notify.Publish(notify.Event{
		Kind:        kind,
		UserID:      actor.UserID,
		UserName:    actor.Name,
		UserEmail:   actor.Email,
		ResumeTitle: title,
		Fields:      fields,
	})
}
