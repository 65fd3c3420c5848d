package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mashup/internal/config"
	"mashup/internal/delivery"
	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/media/ffprobe"
	"mashup/internal/mixing"
	"mashup/internal/notifications"
	"mashup/internal/packaging"
	"mashup/internal/ranking"
	"mashup/internal/retrieval"
	"mashup/internal/services"
	"mashup/internal/source"
	"mashup/internal/textutil"
	"mashup/internal/transcode"
	"mashup/internal/trimming"
	"mashup/internal/workspace"
)

// Ranker selects candidates for a query.
type Ranker interface {
	Rank(ctx context.Context, query string, count int) ([]mashup.Candidate, error)
}

// Retriever fetches candidates into a workspace.
type Retriever interface {
	Retrieve(ctx context.Context, candidates []mashup.Candidate, dest retrieval.Destination) ([]mashup.Asset, error)
}

// Trimmer extracts clips from assets.
type Trimmer interface {
	TrimAll(ctx context.Context, assets []mashup.Asset, dest trimming.Destination, offset, duration time.Duration) ([]mashup.Clip, error)
}

// Mixer concatenates clips into one artifact.
type Mixer interface {
	Mix(ctx context.Context, clips []mashup.Clip, dest string, tags mixing.Tags) (mashup.Artifact, error)
}

// Packager archives the artifact.
type Packager interface {
	Package(ctx context.Context, artifact mashup.Artifact, dest string) (mashup.Package, error)
}

// Components are the stage implementations a Runner drives.
type Components struct {
	Ranker    Ranker
	Retriever Retriever
	Trimmer   Trimmer
	Mixer     Mixer
	Packager  Packager
	Sender    delivery.Sender
	Notifier  notifications.Service
}

// Settings are the per-run tunables.
type Settings struct {
	WorkspaceRoot   string
	Offset          time.Duration
	MaxArchiveBytes int64
}

// Result describes a completed run.
type Result struct {
	RequestID   string
	Message     string
	Clips       int
	ArchiveSize int64
	States      []State
}

// Runner executes mashup requests.
type Runner struct {
	components Components
	settings   Settings
	logger     *slog.Logger
}

// New constructs a Runner. A nil notifier disables notifications.
func New(components Components, settings Settings, logger *slog.Logger) *Runner {
	if components.Notifier == nil {
		components.Notifier = notifications.NewService(nil)
	}
	if settings.MaxArchiveBytes <= 0 {
		settings.MaxArchiveBytes = packaging.DefaultLimit
	}
	return &Runner{
		components: components,
		settings:   settings,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// NewFromConfig wires the production stages from configuration. sender
// overrides SMTP delivery when non-nil.
func NewFromConfig(cfg *config.Config, sender delivery.Sender, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	ytdlp, err := source.NewYtDlp(cfg.Source.YtDlpBinary, source.WithFormat(cfg.Source.Format))
	if err != nil {
		return nil, err
	}
	src := source.WithRetry(ytdlp, RetryPolicy(cfg), logger)

	if sender == nil {
		smtp, err := delivery.NewSMTPSender(cfg.Mail, logger)
		if err != nil {
			return nil, err
		}
		sender = smtp
	}

	components := Components{
		Ranker:    ranking.New(src, cfg.Mashup.SearchFloor, cfg.Mashup.SearchMultiplier, logger),
		Retriever: retrieval.New(src, logger),
		Trimmer: trimming.New(
			transcode.NewFFmpeg(cfg.Transcode.FFmpegBinary, cfg.Transcode.BitrateKbps),
			ffprobe.Prober{Binary: cfg.Transcode.FFprobeBinary},
			logger,
		),
		Mixer:    mixing.New(logger),
		Packager: packaging.New(logger),
		Sender:   sender,
		Notifier: notifications.NewService(cfg),
	}
	settings := Settings{
		WorkspaceRoot:   cfg.Paths.WorkspaceRoot,
		Offset:          cfg.Offset(),
		MaxArchiveBytes: cfg.MaxArchiveBytes(),
	}
	return New(components, settings, logger), nil
}

// RetryPolicy derives the media source retry policy from cfg. Unset or
// invalid values fall back to services.DefaultRetryPolicy.
func RetryPolicy(cfg *config.Config) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	if cfg == nil {
		return policy
	}
	if cfg.Source.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.Source.RetryAttempts
	}
	if cfg.Source.RetryDelaySeconds >= 0 {
		policy.Delay = cfg.RetryDelay()
	}
	return policy
}

// Run executes req end to end. The workspace is removed before Run returns,
// whether or not the run succeeded.
func (r *Runner) Run(ctx context.Context, req mashup.Request) (result Result, err error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok || strings.TrimSpace(requestID) == "" {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	result.RequestID = requestID
	logger := logging.WithContext(ctx, r.logger)

	ws, err := workspace.New(r.settings.WorkspaceRoot)
	if err != nil {
		return result, &StageError{Stage: StageRanking, Message: MsgDownloadFailed,
			Err: services.Wrap(services.ErrConfiguration, "workspace", "create", "", err)}
	}
	result.States = append(result.States, StateCreated)
	logger.Info("request started",
		logging.String(logging.FieldEventType, "request_start"),
		logging.String("singer", req.Singer),
		logging.Int("count", req.Count),
		logging.Int("duration_seconds", req.Duration),
		logging.String("workspace", ws.ID()),
	)
	started := time.Now()

	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "cleanup_failed",
				logging.String("workspace", ws.Root()),
				logging.Error(cleanupErr),
				logging.String(logging.FieldImpact, "stale files remain until the next sweep"),
			)
		}
		result.States = append(result.States, StateCleaned)
		r.notify(ctx, req, result, err)
		if err != nil {
			logger.Info("request failed",
				logging.String(logging.FieldEventType, "request_failed"),
				logging.String("message", UserMessage(err)),
				logging.Duration("elapsed", time.Since(started)),
			)
			return
		}
		logger.Info("request completed",
			logging.String(logging.FieldEventType, "request_complete"),
			logging.Int("clips", result.Clips),
			logging.Int64("archive_bytes", result.ArchiveSize),
			logging.Duration("elapsed", time.Since(started)),
		)
	}()

	candidates, err := r.rank(ctx, req)
	if err != nil {
		return result, err
	}
	result.States = append(result.States, StateRanked)

	assets, err := r.retrieve(ctx, candidates, ws)
	if err != nil {
		return result, err
	}
	result.States = append(result.States, StateRetrieved)

	clips, err := r.trim(ctx, assets, ws, req)
	if err != nil {
		return result, err
	}
	result.States = append(result.States, StateTrimmed)
	result.Clips = len(clips)

	artifact, err := r.mix(ctx, clips, ws, req)
	if err != nil {
		return result, err
	}
	result.States = append(result.States, StateMixed)

	pkg, err := r.pack(ctx, artifact, ws)
	if err != nil {
		return result, err
	}
	result.States = append(result.States, StatePackaged)
	result.ArchiveSize = pkg.Size

	if err := packaging.CheckSize(pkg, r.settings.MaxArchiveBytes); err != nil {
		return result, &StageError{Stage: StageSizeCheck, Message: packaging.OversizeMessage(pkg.Size), Err: err}
	}
	result.States = append(result.States, StateSizeChecked)

	if err := r.deliver(ctx, req, pkg); err != nil {
		return result, err
	}
	result.States = append(result.States, StateDelivered)
	result.Message = MsgSuccess
	return result, nil
}

func (r *Runner) rank(ctx context.Context, req mashup.Request) ([]mashup.Candidate, error) {
	ctx = services.WithStage(ctx, StageRanking)
	candidates, err := r.components.Ranker.Rank(ctx, req.Singer, req.Count)
	if err != nil {
		return nil, &StageError{Stage: StageRanking, Message: MsgDownloadFailed, Err: err}
	}
	if len(candidates) == 0 {
		return nil, &StageError{Stage: StageRanking, Message: MsgDownloadFailed,
			Err: services.Wrap(services.ErrSourceUnavailable, StageRanking, "rank", "search returned no candidates", nil)}
	}
	return candidates, nil
}

func (r *Runner) retrieve(ctx context.Context, candidates []mashup.Candidate, ws *workspace.Workspace) ([]mashup.Asset, error) {
	ctx = services.WithStage(ctx, StageRetrieval)
	assets, err := r.components.Retriever.Retrieve(ctx, candidates, ws)
	if err == nil && len(assets) == 0 {
		err = services.Wrap(services.ErrSourceUnavailable, StageRetrieval, "retrieve", "no assets retrieved", nil)
	}
	if err != nil {
		return nil, &StageError{Stage: StageRetrieval, Message: MsgDownloadFailed, Err: err}
	}
	return assets, nil
}

func (r *Runner) trim(ctx context.Context, assets []mashup.Asset, ws *workspace.Workspace, req mashup.Request) ([]mashup.Clip, error) {
	ctx = services.WithStage(ctx, StageTrimming)
	clips, err := r.components.Trimmer.TrimAll(ctx, assets, ws, r.settings.Offset, req.ClipDuration())
	if err == nil && len(clips) == 0 {
		err = services.Wrap(services.ErrProcessing, StageTrimming, "trim", "no clips produced", nil)
	}
	if err != nil {
		return nil, &StageError{Stage: StageTrimming, Message: MsgProcessFailed, Err: err}
	}
	return clips, nil
}

func (r *Runner) mix(ctx context.Context, clips []mashup.Clip, ws *workspace.Workspace, req mashup.Request) (mashup.Artifact, error) {
	ctx = services.WithStage(ctx, StageMixing)
	tags := MashupTags(req)
	artifact, err := r.components.Mixer.Mix(ctx, clips, ws.MashupPath(), tags)
	if err != nil {
		return mashup.Artifact{}, &StageError{Stage: StageMixing, Message: MsgMixFailed, Err: err}
	}
	return artifact, nil
}

// MashupTags returns the ID3 title and artist for a request's artifact.
func MashupTags(req mashup.Request) mixing.Tags {
	artist := textutil.DisplayTitle(req.Singer)
	return mixing.Tags{
		Title:  fmt.Sprintf("%s Mashup", artist),
		Artist: artist,
	}
}

func (r *Runner) pack(ctx context.Context, artifact mashup.Artifact, ws *workspace.Workspace) (mashup.Package, error) {
	ctx = services.WithStage(ctx, StagePackaging)
	pkg, err := r.components.Packager.Package(ctx, artifact, ws.ArchivePath())
	if err != nil {
		return mashup.Package{}, &StageError{Stage: StagePackaging, Message: MsgPackageFailed, Err: err}
	}
	return pkg, nil
}

func (r *Runner) deliver(ctx context.Context, req mashup.Request, pkg mashup.Package) error {
	ctx = services.WithStage(ctx, StageDelivery)
	if err := r.components.Sender.Send(ctx, req.Email, pkg.Path, workspace.ArchiveFileName); err != nil {
		return &StageError{
			Stage:   StageDelivery,
			Message: fmt.Sprintf(msgDeliveryPattern, delivery.Reason(err)),
			Err:     err,
		}
	}
	return nil
}

func (r *Runner) notify(ctx context.Context, req mashup.Request, result Result, runErr error) {
	event := notifications.EventMashupDelivered
	payload := notifications.Payload{
		"singer": req.Singer,
		"clips":  result.Clips,
		"size":   fmt.Sprintf("%.2fMB", packaging.SizeMiB(result.ArchiveSize)),
	}
	if runErr != nil {
		var stageErr *StageError
		switch {
		case errors.As(runErr, &stageErr) && stageErr.Stage == StageSizeCheck:
			event = notifications.EventMashupRejected
			payload = notifications.Payload{"singer": req.Singer, "reason": stageErr.Message}
		case errors.As(runErr, &stageErr):
			event = notifications.EventError
			payload = notifications.Payload{"stage": stageErr.Stage, "error": runErr}
		default:
			event = notifications.EventError
			payload = notifications.Payload{"error": runErr}
		}
	}
	if err := r.components.Notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "notification failed", "notify_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator was not notified"),
		)
	}
}
