package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/model"
)

// MetadataStore is the slice of the docstore the publisher needs.
type MetadataStore interface {
	UpsertFiling(ctx context.Context, rec *model.FilingRecord) error
}

// Artifacts are the rendered outputs for one filing.
type Artifacts struct {
	LLM     string
	Text    string
	RawDump []byte
}

// ArtifactKeys derives the three object keys for a filing.
func ArtifactKeys(m PathMeta) (llmKey, textKey, dumpKey string) {
	id := DocumentID(m)
	return CanonicalPath(m, id+"_llm.txt"),
		CanonicalPath(m, id+"_text.txt"),
		CanonicalPath(m, id+"_xbrl_raw.json")
}

// PublishResult reports what Publish did.
type PublishResult struct {
	Record   *model.FilingRecord
	Uploaded bool
	Warnings []model.ValidationWarning
}

// Publisher writes artifacts to the object store and upserts the filings
// metadata record.
type Publisher struct {
	objects ObjectStore
	meta    MetadataStore
	minSize int
}

// NewPublisher wires a publisher. minSize below which artifacts draw a
// small_artifact warning; zero disables the check.
func NewPublisher(objects ObjectStore, meta MetadataStore, minSize int) *Publisher {
	return &Publisher{objects: objects, meta: meta, minSize: minSize}
}

// Publish uploads the artifacts and upserts the metadata record. When the LLM
// artifact already exists and force is unset, uploads are skipped but the
// metadata upsert still runs, refreshing last_accessed and the access count.
func (p *Publisher) Publish(ctx context.Context, d model.FilingDescriptor, fi fiscal.PeriodInfo, arts Artifacts, force bool, integrity map[string]any) (*PublishResult, error) {
	pm := PathMeta{
		Ticker:       d.Ticker,
		FilingType:   d.FilingType,
		FiscalYear:   fi.FiscalYear,
		FiscalPeriod: fi.FiscalPeriod,
	}
	id := DocumentID(pm)
	llmKey, textKey, dumpKey := ArtifactKeys(pm)

	if integrity == nil {
		integrity = map[string]any{}
	}
	res := &PublishResult{}

	if p.minSize > 0 && len(arts.LLM) < p.minSize {
		integrity["small_artifact"] = len(arts.LLM)
		res.Warnings = append(res.Warnings, model.ValidationWarning{
			Code:   "small_artifact",
			Detail: fmt.Sprintf("llm artifact is %d bytes, below the %d byte minimum", len(arts.LLM), p.minSize),
		})
	}

	upload := true
	if !force {
		exists, err := p.objects.Exists(ctx, llmKey)
		if err != nil {
			return nil, eris.Wrapf(err, "storage: publish %s", id)
		}
		if exists {
			upload = false
			zap.L().Info("artifacts already published, skipping uploads",
				zap.String("filing_id", id),
				zap.String("llm_path", llmKey))
		}
	}

	if upload {
		if err := p.objects.Put(ctx, llmKey, []byte(arts.LLM)); err != nil {
			return nil, eris.Wrapf(err, "storage: publish %s", id)
		}
		if arts.Text != "" {
			if err := p.objects.Put(ctx, textKey, []byte(arts.Text)); err != nil {
				return nil, eris.Wrapf(err, "storage: publish %s", id)
			}
		}
		if len(arts.RawDump) > 0 {
			if err := p.objects.Put(ctx, dumpKey, arts.RawDump); err != nil {
				return nil, eris.Wrapf(err, "storage: publish %s", id)
			}
		}
	}

	now := time.Now().UTC()
	rec := &model.FilingRecord{
		FilingID:                id,
		CompanyTicker:           d.Ticker,
		CompanyName:             d.CompanyName,
		CIK:                     d.CIK,
		AccessionNumber:         d.AccessionNumber,
		FilingType:              string(d.FilingType),
		FiscalYear:              fi.FiscalYear,
		FiscalPeriod:            fi.FiscalPeriod,
		DisplayPeriod:           fi.Display(),
		PeriodEndDate:           fi.PeriodEnd,
		PeriodEndDateRaw:        d.PeriodEndDate,
		FilingDate:              d.FilingDate,
		LLMFilePath:             llmKey,
		LLMFileSize:             int64(len(arts.LLM)),
		LLMTokenCount:           EstimateTokens(arts.LLM),
		HasLLMFormat:            arts.LLM != "",
		FiscalSource:            fi.Source,
		FiscalIntegrityVerified: fi.Source == fiscal.SourceRegistry,
		DataIntegrity:           integrity,
		UploadDate:              now,
		LastAccessed:            now,
	}
	if arts.Text != "" {
		rec.TextFilePath = textKey
		rec.TextFileSize = int64(len(arts.Text))
		rec.TextTokenCount = EstimateTokens(arts.Text)
	}

	if err := p.meta.UpsertFiling(ctx, rec); err != nil {
		return nil, eris.Wrapf(err, "storage: upsert metadata %s", id)
	}

	res.Record = rec
	res.Uploaded = upload
	return res, nil
}
