package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/config"
	"github.com/sells-group/edgar-llm/internal/docstore"
	"github.com/sells-group/edgar-llm/internal/fetcher"
	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/hierarchy"
	"github.com/sells-group/edgar-llm/internal/llmfmt"
	"github.com/sells-group/edgar-llm/internal/model"
	"github.com/sells-group/edgar-llm/internal/narrative"
	"github.com/sells-group/edgar-llm/internal/storage"
	"github.com/sells-group/edgar-llm/internal/validate"
	"github.com/sells-group/edgar-llm/internal/verify"
	"github.com/sells-group/edgar-llm/internal/xbrl"
)

// Pipeline drives one filing from fetch to published artifacts.
type Pipeline struct {
	cfg       *config.Config
	fetch     fetcher.Fetcher
	registry  *fiscal.Registry
	objects   storage.ObjectStore
	meta      docstore.Store
	publisher *storage.Publisher
	handlers  []xbrl.FormatHandler
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, fetch fetcher.Fetcher, registry *fiscal.Registry, objects storage.ObjectStore, meta docstore.Store) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		fetch:     fetch,
		registry:  registry,
		objects:   objects,
		meta:      meta,
		publisher: storage.NewPublisher(objects, meta, int(cfg.Storage.MinArtifactSize)),
		handlers:  xbrl.DefaultHandlers(),
	}
}

// RunOptions adjusts batch behavior per invocation.
type RunOptions struct {
	// Concurrency overrides pipeline.max_concurrency when positive.
	Concurrency int
	// DryRun stops each filing after validation and reports the paths the
	// publish stage would write.
	DryRun bool
	// Force re-uploads artifacts even when all three already exist.
	Force bool
}

// ProcessFiling runs the stages for a single filing. The returned report is
// never nil; Status tells pass from fail and Stages carries per-stage timing
// and the first error.
func (p *Pipeline) ProcessFiling(ctx context.Context, d model.FilingDescriptor, opts RunOptions) *FilingReport {
	rep := &FilingReport{
		Ticker:          d.Ticker,
		FilingType:      string(d.FilingType),
		AccessionNumber: d.AccessionNumber,
		Status:          StatusFail,
	}
	log := zap.L().With(
		zap.String("ticker", d.Ticker),
		zap.String("filing_type", string(d.FilingType)),
		zap.String("accession", d.AccessionNumber))

	// stage times fn, records the result and logs a failure without
	// deciding whether processing continues; callers do that.
	stage := func(name string, fn func() error) bool {
		start := time.Now()
		err := fn()
		sr := StageResult{Name: name, Success: err == nil, TimeSeconds: time.Since(start).Seconds()}
		if err != nil {
			sr.Error = err.Error()
			if rep.Error == "" {
				rep.Error = err.Error()
			}
			log.Warn("stage failed", zap.String("stage", name), zap.Error(err))
		}
		rep.Stages = append(rep.Stages, sr)
		return err == nil
	}

	var data []byte
	if !stage("fetch", func() error {
		var err error
		data, err = p.fetch.Get(ctx, d.DocumentURL)
		return err
	}) {
		return rep
	}

	var doc *xbrl.Document
	if !stage("extract", func() error {
		var err error
		doc, err = xbrl.Extract(data, d.DocumentURL, xbrl.ExtractOptions{
			Handlers:  p.handlers,
			PeriodEnd: d.PeriodEndDate,
		})
		return err
	}) {
		return rep
	}
	rep.FactCount = len(doc.Facts)
	rep.Warnings = append(rep.Warnings, doc.Warnings...)
	if d.CompanyName == "" {
		d.CompanyName = doc.DEIValue("EntityRegistrantName")
	}

	var stmts *hierarchy.StatementMap
	stage("hierarchy", func() error {
		var linkbases []*hierarchy.Linkbase
		for _, u := range d.LinkbaseURLs {
			lbData, err := p.fetch.Get(ctx, u)
			if err != nil {
				rep.addWarning("linkbase_unavailable", fmt.Sprintf("%s: %v", u, err))
				continue
			}
			lb, err := hierarchy.ParseLinkbase(lbData)
			if err != nil {
				rep.addWarning("linkbase_unparseable", fmt.Sprintf("%s: %v", u, err))
				continue
			}
			linkbases = append(linkbases, lb)
		}
		stmts = hierarchy.Build(linkbases)
		return nil
	})

	var fi fiscal.PeriodInfo
	integrity := make(map[string]any)
	if !stage("fiscal", func() error {
		var err error
		fi, err = storage.ResolveFiscal(p.registry, d, fiscalFocus(doc), p.cfg.Pipeline.StrictFiscal, integrity)
		return err
	}) {
		return rep
	}

	var artifact, text string
	stage("format", func() error {
		var sections []narrative.Section
		if doc.Kind == xbrl.KindInline {
			var err error
			sections, err = narrative.Extract(data, d.FilingType, d.DocumentURL)
			if err != nil {
				rep.addWarning("narrative_extraction_failed", err.Error())
				sections = nil
			}
		}
		text = narrative.Render(sections)
		draft := llmfmt.Emit(doc, stmts, llmfmt.Metadata{
			Ticker:       d.Ticker,
			CompanyName:  d.CompanyName,
			CIK:          d.CIK,
			FilingType:   d.FilingType,
			FilingDate:   d.FilingDate,
			PeriodEnd:    fi.PeriodEnd,
			FiscalYear:   fi.FiscalYear,
			FiscalPeriod: fi.FiscalPeriod,
			Source:       d.DocumentURL,
		}, formatSections(sections))
		artifact = llmfmt.Optimize(draft)
		return nil
	})

	stage("validate", func() error {
		res := validate.Check(doc)
		rep.Balanced = res.Balanced
		rep.Warnings = append(rep.Warnings, res.Warnings...)
		return nil
	})

	pm := storage.PathMeta{
		Ticker:       d.Ticker,
		FilingType:   d.FilingType,
		FiscalYear:   fi.FiscalYear,
		FiscalPeriod: fi.FiscalPeriod,
	}
	llmKey, textKey, dumpKey := storage.ArtifactKeys(pm)
	rep.FilingID = storage.DocumentID(pm)
	if opts.DryRun {
		rep.LLMPath, rep.TextPath, rep.RawDumpPath = llmKey, textKey, dumpKey
		rep.Status = StatusPass
		log.Info("dry run, skipping publish",
			zap.String("llm_path", llmKey),
			zap.String("text_path", textKey),
			zap.String("raw_dump_path", dumpKey))
		return rep
	}

	var dump *xbrl.RawDump
	var dumpJSON []byte
	if p.cfg.Pipeline.RawDump {
		dump = xbrl.BuildRawDump(doc)
		var err error
		dumpJSON, err = dump.Marshal()
		if err != nil {
			rep.addWarning("raw_dump_failed", err.Error())
			dump, dumpJSON = nil, nil
		}
	}

	if !stage("store", func() error {
		res, err := p.publisher.Publish(ctx, d, fi, storage.Artifacts{
			LLM:     artifact,
			Text:    text,
			RawDump: dumpJSON,
		}, opts.Force, integrity)
		if err != nil {
			return err
		}
		rep.Uploaded = res.Uploaded
		rep.LLMPath = res.Record.LLMFilePath
		rep.Warnings = append(rep.Warnings, res.Warnings...)
		if text != "" {
			rep.TextPath = textKey
		}
		if dumpJSON != nil {
			rep.RawDumpPath = dumpKey
		}
		return nil
	}) {
		return rep
	}

	verified := true
	if dump != nil {
		verified = stage("verify", func() error {
			vrep := verify.Run(artifact, dump)
			rep.Verification = vrep
			if !vrep.Passed(p.cfg.Verify.Threshold) {
				rep.addWarning("verification_below_threshold", fmt.Sprintf(
					"adjusted completeness %.2f%% below threshold %.2f%%",
					vrep.AdjustedCompleteness()*100, p.cfg.Verify.Threshold*100))
				return eris.Errorf("pipeline: adjusted completeness %.4f below threshold %.4f",
					vrep.AdjustedCompleteness(), p.cfg.Verify.Threshold)
			}
			return nil
		})
	}
	if verified {
		rep.Status = StatusPass
	}

	log.Info("filing processed",
		zap.String("filing_id", rep.FilingID),
		zap.String("status", rep.Status),
		zap.Int("facts", rep.FactCount),
		zap.Int("warnings", len(rep.Warnings)))
	return rep
}

// fiscalFocus reads the filing's own dei fiscal focus tags.
func fiscalFocus(doc *xbrl.Document) storage.MetadataFiscal {
	meta := storage.MetadataFiscal{Period: doc.DEIValue("DocumentFiscalPeriodFocus")}
	if y := doc.DEIValue("DocumentFiscalYearFocus"); y != "" {
		if n, err := strconv.Atoi(y); err == nil {
			meta.Year = n
		}
	}
	return meta
}

func formatSections(sections []narrative.Section) []llmfmt.Section {
	out := make([]llmfmt.Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, llmfmt.Section{ID: s.ID, Title: s.Title, Text: s.Text})
	}
	return out
}
