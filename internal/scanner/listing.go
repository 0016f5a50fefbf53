package scanner

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"

	"github.com/npawatch/npawatch/internal/model"
)

// listingPage is the decoded shape of one fetched XML page (§6.1): a
// flat sequence of <project> elements at the document root.
type listingPage struct {
	XMLName  xml.Name        `xml:"projects"`
	Projects []listingEntity `xml:"project"`
}

// listingEntity mirrors one <project> element, including the optional
// id-bearing child attributes described in §4.1.1.
type listingEntity struct {
	ID                string `xml:"id,attr"`
	Title             string `xml:"title"`
	ProjectIDText     string `xml:"projectId"`
	Date              string `xml:"date"`
	PublishDate       string `xml:"publishDate"`
	Responsible       string `xml:"responsible"`
	Stage             idBearingField `xml:"stage"`
	Status            idBearingField `xml:"status"`
	RegulatoryImpact  idBearingField `xml:"regulatoryImpact"`
	ProcedureResult   idBearingField `xml:"procedureResult"`
	Kind              idBearingField `xml:"kind"`
	Department        idBearingField `xml:"department"`
	Procedure         idBearingField `xml:"procedure"`
	ParallelStageFile []string       `xml:"parallelStageFile"`
}

type idBearingField struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

func (f idBearingField) present() bool {
	return f.Value != "" || f.ID != ""
}

// parseListingPage decodes raw XML bytes into listingPage.
func parseListingPage(data []byte) (*listingPage, error) {
	var page listingPage
	if err := xml.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse listing XML: %w", err)
	}
	return &page, nil
}

// buildItem applies §4.1.1's parsing rules to one listingEntity,
// returning (nil, false) for elements that must be dropped (missing id,
// no usable title, or regex rejection).
func buildItem(e listingEntity, urlRegex *regexp.Regexp) (*model.CrawlItem, bool) {
	if e.ID == "" {
		return nil, false
	}

	title := e.Title
	if title == "" {
		title = e.ProjectIDText
	}
	if title == "" {
		return nil, false
	}

	id := e.ID
	url := fmt.Sprintf("https://regulation.gov.ru/projects/%s", id)
	if urlRegex != nil {
		m := urlRegex.FindStringSubmatch(url)
		if m == nil {
			return nil, false
		}
		if len(m) > 1 {
			id = m[1]
		}
	}

	ids := map[model.MetadataKind]string{}
	var items []model.MetadataItem

	addScalar := func(kind model.MetadataKind, value string) {
		if value == "" {
			return
		}
		items = append(items, model.MetadataItem{Kind: kind, Value: value})
	}
	addIDBearing := func(kind, idKind model.MetadataKind, f idBearingField) {
		if !f.present() {
			return
		}
		items = append(items, model.MetadataItem{Kind: kind, Value: f.Value})
		if f.ID != "" {
			items = append(items, model.MetadataItem{Kind: idKind, Value: f.ID})
			ids[kind] = f.ID
		}
	}

	addIDBearing(model.KindStage, model.KindStageID, e.Stage)
	addIDBearing(model.KindStatus, model.KindStatusID, e.Status)
	addIDBearing(model.KindRegulatoryImpact, model.KindRegulatoryImpactID, e.RegulatoryImpact)
	addIDBearing(model.KindProcedureResult, model.KindProcedureResultID, e.ProcedureResult)
	addIDBearing(model.KindKind, model.KindKindID, e.Kind)
	addIDBearing(model.KindDepartment, model.KindDepartmentID, e.Department)
	addIDBearing(model.KindProcedure, model.KindProcedureID, e.Procedure)

	addScalar(model.KindDate, e.Date)
	addScalar(model.KindPublishDate, e.PublishDate)
	addScalar(model.KindResponsible, e.Responsible)

	if len(e.ParallelStageFile) > 0 {
		items = append(items, model.MetadataItem{Kind: model.KindParallelStageFiles, Values: e.ParallelStageFile})
	}

	body := model.BuildBody(title, items, ids)

	return &model.CrawlItem{
		Title:     title,
		URL:       url,
		ProjectID: id,
		Body:      body,
		Metadata:  items,
	}, true
}

// numericProjectID parses a CrawlItem's ProjectID as an unsigned
// integer; items with a non-numeric id (after regex substitution)
// don't participate in min/max tracking or manifest updates.
func numericProjectID(item *model.CrawlItem) (uint64, bool) {
	n, err := strconv.ParseUint(item.ProjectID, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
