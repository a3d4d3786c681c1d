package report

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/metadata"
)

// DerivationSource is the provenance snapshot of one source series. It is
// captured once, the first time an annotation on that series is encoded,
// and never mutated afterwards within a build.
type DerivationSource struct {
	Study  metadata.GeneralStudy
	Series metadata.GeneralSeries
}

// derivationSet accumulates per-series provenance and the referenced
// instances backing the evidence sequence. Series are keyed by series
// instance UID; insertion order is kept so document output stays
// deterministic.
type derivationSet struct {
	provider metadata.Provider

	sources map[string]*DerivationSource
	order   []string

	evidence map[string][]content.ReferencedSOP
	seen     map[string]bool
}

func newDerivationSet(p metadata.Provider) *derivationSet {
	return &derivationSet{
		provider: p,
		sources:  make(map[string]*DerivationSource),
		evidence: make(map[string][]content.ReferencedSOP),
		seen:     make(map[string]bool),
	}
}

// observe records the series and study of one source image, snapshotting
// them on first sight, and adds the referenced instance to the evidence
// set.
func (s *derivationSet) observe(imageID string, ref content.ReferencedSOP) error {
	series, err := metadata.GeneralSeriesOf(s.provider, imageID)
	if err != nil {
		return err
	}
	study, err := metadata.GeneralStudyOf(s.provider, imageID)
	if err != nil {
		return err
	}

	uid := series.SeriesInstanceUID
	if _, ok := s.sources[uid]; !ok {
		s.sources[uid] = &DerivationSource{Study: *study, Series: *series}
		s.order = append(s.order, uid)
	}

	if ref.InstanceUID != "" && !s.seen[ref.InstanceUID] {
		s.seen[ref.InstanceUID] = true
		s.evidence[uid] = append(s.evidence[uid], ref)
	}
	return nil
}

// first returns the earliest observed source, nil when nothing image-
// backed was encoded. The document's study identity is taken from it.
func (s *derivationSet) first() *DerivationSource {
	if len(s.order) == 0 {
		return nil
	}
	return s.sources[s.order[0]]
}

// empty reports whether no evidence was collected.
func (s *derivationSet) empty() bool {
	return len(s.order) == 0
}

// evidenceElement renders the evidence set as a
// CurrentRequestedProcedureEvidenceSequence element, grouping series
// under their study.
func (s *derivationSet) evidenceElement() (*dicom.Element, error) {
	type studyGroup struct {
		uid    string
		series []string
	}
	var studies []*studyGroup
	byStudy := make(map[string]*studyGroup)
	for _, seriesUID := range s.order {
		studyUID := s.sources[seriesUID].Study.StudyInstanceUID
		g, ok := byStudy[studyUID]
		if !ok {
			g = &studyGroup{uid: studyUID}
			byStudy[studyUID] = g
			studies = append(studies, g)
		}
		g.series = append(g.series, seriesUID)
	}

	var studyItems [][]*dicom.Element
	for _, study := range studies {
		var seriesItems [][]*dicom.Element
		for _, seriesUID := range study.series {
			var sopItems [][]*dicom.Element
			for _, ref := range s.evidence[seriesUID] {
				item, err := evidenceSOPItem(ref)
				if err != nil {
					return nil, err
				}
				sopItems = append(sopItems, item)
			}
			if len(sopItems) == 0 {
				continue
			}
			item, err := evidenceSeriesItem(seriesUID, sopItems)
			if err != nil {
				return nil, err
			}
			seriesItems = append(seriesItems, item)
		}
		if len(seriesItems) == 0 {
			continue
		}
		item, err := evidenceStudyItem(study.uid, seriesItems)
		if err != nil {
			return nil, err
		}
		studyItems = append(studyItems, item)
	}

	el, err := dicom.NewElement(tag.CurrentRequestedProcedureEvidenceSequence, studyItems)
	if err != nil {
		return nil, fmt.Errorf("build evidence sequence: %w", err)
	}
	return el, nil
}

func evidenceSOPItem(ref content.ReferencedSOP) ([]*dicom.Element, error) {
	classEl, err := dicom.NewElement(tag.ReferencedSOPClassUID, []string{ref.ClassUID})
	if err != nil {
		return nil, err
	}
	instEl, err := dicom.NewElement(tag.ReferencedSOPInstanceUID, []string{ref.InstanceUID})
	if err != nil {
		return nil, err
	}
	return []*dicom.Element{classEl, instEl}, nil
}

func evidenceSeriesItem(seriesUID string, sopItems [][]*dicom.Element) ([]*dicom.Element, error) {
	refEl, err := dicom.NewElement(tag.ReferencedSOPSequence, sopItems)
	if err != nil {
		return nil, err
	}
	uidEl, err := dicom.NewElement(tag.SeriesInstanceUID, []string{seriesUID})
	if err != nil {
		return nil, err
	}
	return []*dicom.Element{refEl, uidEl}, nil
}

func evidenceStudyItem(studyUID string, seriesItems [][]*dicom.Element) ([]*dicom.Element, error) {
	seriesEl, err := dicom.NewElement(tag.ReferencedSeriesSequence, seriesItems)
	if err != nil {
		return nil, err
	}
	uidEl, err := dicom.NewElement(tag.StudyInstanceUID, []string{studyUID})
	if err != nil {
		return nil, err
	}
	return []*dicom.Element{seriesEl, uidEl}, nil
}
