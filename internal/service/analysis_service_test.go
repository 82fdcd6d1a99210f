package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/internal/observer"
	"go-leaf-inspector/pkg/models"
	"go-leaf-inspector/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	classification models.Classification
	err            error
	calls          int32
}

func (f *fakeClassifier) Classify(ctx context.Context, img *models.UploadedImage) (models.Classification, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.classification, f.err
}

type fakeGenerator struct {
	treatment    string
	info         *models.DiseaseInfo
	treatmentErr error
	infoErr      error

	mu             sync.Mutex
	treatmentCalls int
	infoCalls      int
	diseases       []string
}

func (f *fakeGenerator) record(disease string, treatment bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if treatment {
		f.treatmentCalls++
	} else {
		f.infoCalls++
	}
	f.diseases = append(f.diseases, disease)
}

func (f *fakeGenerator) GenerateTreatmentGuidance(ctx context.Context, disease string) (string, error) {
	f.record(disease, true)
	return f.treatment, f.treatmentErr
}

func (f *fakeGenerator) GetDiseaseInfo(ctx context.Context, disease string) (*models.DiseaseInfo, error) {
	f.record(disease, false)
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observer.AnalysisEvent
}

func (o *recordingObserver) OnEvent(ctx context.Context, event observer.AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) GetObserverName() string { return "recording" }

func (o *recordingObserver) types() []observer.EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	var types []observer.EventType
	for _, e := range o.events {
		types = append(types, e.EventType)
	}
	return types
}

func classification(pairs ...interface{}) models.Classification {
	var c models.Classification
	for i := 0; i < len(pairs); i += 2 {
		c = append(c, models.LabelScore{Label: pairs[i].(string), Confidence: pairs[i+1].(float64)})
	}
	return c
}

var leafData = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func newService(c *fakeClassifier, g *fakeGenerator) (AnalysisService, *recordingObserver) {
	events := &recordingObserver{}
	svc := NewAnalysisService(validation.NewImageValidator(), c, g, nil, observer.NewEventPublisher(events))
	return svc, events
}

func goodInfo() *models.DiseaseInfo {
	return &models.DiseaseInfo{
		Description: "A fungal disease of the leaf.",
		Symptoms:    []string{"Brown spots", "Yellow halos", "Leaf drop"},
		Cause:       "Fungal spores spread by rain.",
	}
}

func TestAnalyze_DiseasedLeaf(t *testing.T) {
	c := &fakeClassifier{classification: classification("Leaf_Blight", 0.7, "Healthy", 0.3)}
	g := &fakeGenerator{treatment: "- **Remove** infected leaves", info: goodInfo()}
	svc, events := newService(c, g)

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.jpg", "image/jpeg", leafData))

	require.True(t, outcome.Success)
	require.NotNil(t, outcome.Result)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, "Leaf_Blight", outcome.Result.Disease)
	assert.Equal(t, 0.7, outcome.Result.Confidence)
	require.NotNil(t, outcome.Result.Treatment)
	assert.Equal(t, "- **Remove** infected leaves", *outcome.Result.Treatment)
	assert.Equal(t, goodInfo(), outcome.Result.Info)

	assert.Equal(t, 1, g.treatmentCalls)
	assert.Equal(t, 1, g.infoCalls)
	assert.ElementsMatch(t, []string{"Leaf Blight", "Leaf Blight"}, g.diseases)

	assert.Equal(t, []observer.EventType{observer.AnalysisStarted, observer.AnalysisCompleted}, events.types())
}

func TestAnalyze_HealthyLeafSkipsEnrichment(t *testing.T) {
	c := &fakeClassifier{classification: classification("Healthy", 0.95, "Leaf_Blight", 0.05)}
	g := &fakeGenerator{}
	svc, _ := newService(c, g)

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

	require.True(t, outcome.Success)
	assert.Equal(t, "Healthy", outcome.Result.Disease)
	assert.Equal(t, 0.95, outcome.Result.Confidence)
	assert.Nil(t, outcome.Result.Info)
	assert.Nil(t, outcome.Result.Treatment)
	assert.Zero(t, g.treatmentCalls+g.infoCalls)
}

func TestAnalyze_HealthyMatchedExactly(t *testing.T) {
	c := &fakeClassifier{classification: classification("healthy", 0.9)}
	g := &fakeGenerator{treatment: "t", info: goodInfo()}
	svc, _ := newService(c, g)

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

	require.True(t, outcome.Success)
	assert.NotNil(t, outcome.Result.Treatment)
	assert.Equal(t, 1, g.treatmentCalls)
}

func TestAnalyze_ValidationFailuresMakeNoCalls(t *testing.T) {
	tests := []struct {
		name    string
		img     *models.UploadedImage
		message string
	}{
		{"missing", nil, validation.MsgMissingImage},
		{"empty", models.NewImageFromBytes("leaf.png", "image/png", nil), validation.MsgMissingImage},
		{"too large", models.NewUploadedImage("leaf.png", "image/png", 6*1024*1024, nil), validation.MsgImageTooLarge},
		{"wrong type", models.NewImageFromBytes("leaf.gif", "image/gif", leafData), validation.MsgUnsupportedImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeClassifier{classification: classification("Leaf_Blight", 0.9)}
			g := &fakeGenerator{}
			svc, events := newService(c, g)

			outcome := svc.Analyze(context.Background(), tt.img)

			assert.False(t, outcome.Success)
			assert.Nil(t, outcome.Result)
			assert.Equal(t, tt.message, outcome.Error)
			assert.Equal(t, string(apperrors.ErrorTypeValidation), outcome.ErrorType)
			assert.Zero(t, atomic.LoadInt32(&c.calls))
			assert.Zero(t, g.treatmentCalls+g.infoCalls)
			assert.Equal(t, []observer.EventType{observer.AnalysisStarted, observer.AnalysisFailed}, events.types())
		})
	}
}

func TestAnalyze_ClassifierFailure(t *testing.T) {
	upstream := apperrors.NewUpstreamError("Failed to analyze image. The service returned an error: Internal Server Error", nil)
	c := &fakeClassifier{err: upstream}
	g := &fakeGenerator{}
	svc, _ := newService(c, g)

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

	assert.False(t, outcome.Success)
	assert.Equal(t, "Failed to analyze image. The service returned an error: Internal Server Error", outcome.Error)
	assert.Equal(t, string(apperrors.ErrorTypeUpstream), outcome.ErrorType)
	assert.Zero(t, g.treatmentCalls+g.infoCalls)
}

func TestAnalyze_UnexpectedErrorIsInternal(t *testing.T) {
	c := &fakeClassifier{err: errors.New("boom")}
	svc, _ := newService(c, &fakeGenerator{})

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

	assert.False(t, outcome.Success)
	assert.Equal(t, MsgUnexpected, outcome.Error)
	assert.Equal(t, string(apperrors.ErrorTypeInternal), outcome.ErrorType)
}

func TestAnalyze_Ambiguous(t *testing.T) {
	for name, c := range map[string]models.Classification{
		"all zero": classification("A", 0.0, "B", 0.0),
		"empty":    {},
		"missing":  nil,
	} {
		t.Run(name, func(t *testing.T) {
			g := &fakeGenerator{}
			svc, _ := newService(&fakeClassifier{classification: c}, g)

			outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

			assert.False(t, outcome.Success)
			assert.Equal(t, MsgUnidentified, outcome.Error)
			assert.Equal(t, string(apperrors.ErrorTypeAmbiguous), outcome.ErrorType)
			assert.Zero(t, g.treatmentCalls+g.infoCalls)
		})
	}
}

func TestAnalyze_TieKeepsFirstLabel(t *testing.T) {
	c := &fakeClassifier{classification: classification("Rust", 0.5, "Blight", 0.5)}
	g := &fakeGenerator{treatment: "t", info: goodInfo()}
	svc, _ := newService(c, g)

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

	require.True(t, outcome.Success)
	assert.Equal(t, "Rust", outcome.Result.Disease)
}

func TestAnalyze_EnrichmentFallbackIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"treatment fails", &fakeGenerator{treatmentErr: errors.New("quota"), info: goodInfo()}},
		{"info fails", &fakeGenerator{treatment: "- **Spray** copper", infoErr: errors.New("bad json")}},
		{"both fail", &fakeGenerator{treatmentErr: errors.New("down"), infoErr: errors.New("down")}},
		{"info empty", &fakeGenerator{treatment: "- **Spray** copper"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeClassifier{classification: classification("Tomato_Late_Blight", 0.82)}
			svc, events := newService(c, tt.gen)

			outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

			require.True(t, outcome.Success)
			assert.Equal(t, "Tomato_Late_Blight", outcome.Result.Disease)
			require.NotNil(t, outcome.Result.Treatment)
			assert.Equal(t, FallbackTreatment, *outcome.Result.Treatment)
			assert.Equal(t, FallbackInfo(), outcome.Result.Info)
			assert.Equal(t, 1, tt.gen.treatmentCalls)
			assert.Equal(t, 1, tt.gen.infoCalls)
			assert.Contains(t, events.types(), observer.EnrichmentFallback)
		})
	}
}

type barrierGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (b *barrierGenerator) wait() error {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("peer call never started")
	}
}

func (b *barrierGenerator) GenerateTreatmentGuidance(ctx context.Context, disease string) (string, error) {
	if err := b.wait(); err != nil {
		return "", err
	}
	return "treat", nil
}

func (b *barrierGenerator) GetDiseaseInfo(ctx context.Context, disease string) (*models.DiseaseInfo, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	return goodInfo(), nil
}

func TestAnalyze_EnrichmentCallsRunConcurrently(t *testing.T) {
	gen := &barrierGenerator{started: make(chan struct{}, 2), release: make(chan struct{})}
	go func() {
		<-gen.started
		<-gen.started
		close(gen.release)
	}()

	c := &fakeClassifier{classification: classification("Leaf_Spot", 0.6)}
	svc := NewAnalysisService(nil, c, gen, nil, nil)

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.png", "image/png", leafData))

	require.True(t, outcome.Success)
	assert.Equal(t, "treat", *outcome.Result.Treatment)
	assert.Equal(t, goodInfo(), outcome.Result.Info)
}

func TestAnalyze_ImageURLRoundTrip(t *testing.T) {
	c := &fakeClassifier{classification: classification("Healthy", 1.0)}
	svc, _ := newService(c, &fakeGenerator{})

	outcome := svc.Analyze(context.Background(), models.NewImageFromBytes("leaf.jpg", "image/jpg", leafData))

	require.True(t, outcome.Success)
	prefix := "data:image/jpg;base64,"
	require.True(t, strings.HasPrefix(outcome.Result.ImageURL, prefix))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(outcome.Result.ImageURL, prefix))
	require.NoError(t, err)
	assert.Equal(t, leafData, decoded)
}

func TestAnalyze_IgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &ctxGenerator{}
	c := &fakeClassifier{classification: classification("Leaf_Spot", 0.6)}
	svc := NewAnalysisService(nil, c, gen, nil, nil)

	outcome := svc.Analyze(ctx, models.NewImageFromBytes("leaf.png", "image/png", leafData))

	require.True(t, outcome.Success)
	assert.Equal(t, "ok", *outcome.Result.Treatment)
}

type ctxGenerator struct{}

func (ctxGenerator) GenerateTreatmentGuidance(ctx context.Context, disease string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "ok", nil
}

func (ctxGenerator) GetDiseaseInfo(ctx context.Context, disease string) (*models.DiseaseInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return goodInfo(), nil
}

type fakeRepository struct {
	img  *models.UploadedImage
	err  error
	refs []models.ImageReference
}

func (r *fakeRepository) ValidateReference(ref models.ImageReference) error { return nil }

func (r *fakeRepository) FetchImage(ctx context.Context, ref models.ImageReference) (*models.UploadedImage, error) {
	r.refs = append(r.refs, ref)
	return r.img, r.err
}

func TestAnalyzeRemote(t *testing.T) {
	repo := &fakeRepository{img: models.NewImageFromBytes("leaf.png", "image/png", leafData)}
	c := &fakeClassifier{classification: classification("Healthy", 0.8)}
	events := &recordingObserver{}
	svc := NewAnalysisService(nil, c, &fakeGenerator{}, repo, observer.NewEventPublisher(events))

	outcome := svc.AnalyzeRemote(context.Background(), models.ImageReference{Container: "leaves", Blob: "leaf.png"})

	require.True(t, outcome.Success)
	assert.Equal(t, "Healthy", outcome.Result.Disease)
	assert.Len(t, repo.refs, 1)
	assert.Equal(t, []observer.EventType{observer.AnalysisStarted, observer.ImageFetched, observer.AnalysisCompleted}, events.types())
	assert.Equal(t, SourceBlob, events.events[0].Source)
}

func TestAnalyzeRemote_FetchedImageIsValidated(t *testing.T) {
	repo := &fakeRepository{img: models.NewImageFromBytes("leaf.gif", "image/gif", leafData)}
	c := &fakeClassifier{}
	svc := NewAnalysisService(nil, c, &fakeGenerator{}, repo, nil)

	outcome := svc.AnalyzeRemote(context.Background(), models.ImageReference{URL: "https://example.com/leaf.gif"})

	assert.False(t, outcome.Success)
	assert.Equal(t, validation.MsgUnsupportedImage, outcome.Error)
	assert.Zero(t, atomic.LoadInt32(&c.calls))
}

func TestAnalyzeRemote_Failures(t *testing.T) {
	svc := NewAnalysisService(nil, &fakeClassifier{}, &fakeGenerator{}, nil, nil)
	outcome := svc.AnalyzeRemote(context.Background(), models.ImageReference{URL: "https://example.com/leaf.png"})
	assert.False(t, outcome.Success)
	assert.Equal(t, string(apperrors.ErrorTypeNotFound), outcome.ErrorType)

	repo := &fakeRepository{err: apperrors.NewTransportError("Could not download the image.", errors.New("timeout"))}
	events := &recordingObserver{}
	svc = NewAnalysisService(nil, &fakeClassifier{}, &fakeGenerator{}, repo, observer.NewEventPublisher(events))
	outcome = svc.AnalyzeRemote(context.Background(), models.ImageReference{URL: "https://example.com/leaf.png"})
	assert.False(t, outcome.Success)
	assert.Equal(t, "Could not download the image.", outcome.Error)
	assert.Equal(t, []observer.EventType{observer.AnalysisStarted, observer.ImageFetchFailed, observer.AnalysisFailed}, events.types())
}
