// Package model defines the data types shared by every stage of the
// ingestion pipeline: the crawl items the Scanner discovers, the
// metadata variants carried on them, and the cache records the Worker
// persists.
package model

import "strings"

// MetadataKind tags one MetadataItem variant. The string value is also
// the lowercase snake_case template variable name used by the
// Summarizer and PostRenderer, and the JSON tag used when a
// MetadataItem is persisted inside crawl_metadata.
type MetadataKind string

// The full set of metadata variants observed on a project listing.
// Order here has no significance; CrawlItem.Metadata preserves the
// order items were parsed in.
const (
	KindDate                         MetadataKind = "date"
	KindPublishDate                  MetadataKind = "publish_date"
	KindStage                        MetadataKind = "stage"
	KindStageID                      MetadataKind = "stage_id"
	KindStatus                       MetadataKind = "status"
	KindStatusID                     MetadataKind = "status_id"
	KindRegulatoryImpact             MetadataKind = "regulatory_impact"
	KindRegulatoryImpactID           MetadataKind = "regulatory_impact_id"
	KindProcedureResult              MetadataKind = "procedure_result"
	KindProcedureResultID            MetadataKind = "procedure_result_id"
	KindKind                         MetadataKind = "kind"
	KindKindID                       MetadataKind = "kind_id"
	KindDepartment                   MetadataKind = "department"
	KindDepartmentID                 MetadataKind = "department_id"
	KindProcedure                    MetadataKind = "procedure"
	KindProcedureID                  MetadataKind = "procedure_id"
	KindResponsible                  MetadataKind = "responsible"
	KindAuthor                       MetadataKind = "author"
	KindNextStageDuration            MetadataKind = "next_stage_duration"
	KindParallelStageStartDiscussion MetadataKind = "parallel_stage_start_discussion"
	KindParallelStageEndDiscussion   MetadataKind = "parallel_stage_end_discussion"
	KindStartDiscussion              MetadataKind = "start_discussion"
	KindEndDiscussion                MetadataKind = "end_discussion"
	KindProblem                      MetadataKind = "problem"
	KindObjectives                   MetadataKind = "objectives"
	KindCircleOfPersons              MetadataKind = "circle_of_persons"
	KindSocialRelations              MetadataKind = "social_relations"
	KindRationale                    MetadataKind = "rationale"
	KindTransitionPeriod             MetadataKind = "transition_period"
	KindPlanDate                     MetadataKind = "plan_date"
	KindCompliteDateAct              MetadataKind = "complite_date_act"
	KindCompliteNumberDepAct         MetadataKind = "complite_number_dep_act"
	KindCompliteNumberRegAct         MetadataKind = "complite_number_reg_act"
	KindParallelStageFiles           MetadataKind = "parallel_stage_files"
)

// russianLabels maps a MetadataKind to the label used when composing
// CrawlItem.Body (§4.1.1: "Ключ: value (id: …)" format).
var russianLabels = map[MetadataKind]string{
	KindDate:                         "Дата",
	KindPublishDate:                  "Дата публикации",
	KindStage:                        "Стадия",
	KindStatus:                       "Статус",
	KindRegulatoryImpact:             "Степень регулирующего воздействия",
	KindProcedureResult:              "Результат процедуры",
	KindKind:                         "Вид",
	KindDepartment:                  "Ведомство",
	KindProcedure:                    "Процедура",
	KindResponsible:                  "Ответственный",
	KindAuthor:                       "Автор",
	KindNextStageDuration:            "Срок следующей стадии",
	KindParallelStageStartDiscussion: "Начало параллельного обсуждения",
	KindParallelStageEndDiscussion:   "Окончание параллельного обсуждения",
	KindStartDiscussion:              "Начало обсуждения",
	KindEndDiscussion:                "Окончание обсуждения",
	KindProblem:                      "Проблема",
	KindObjectives:                   "Цели",
	KindCircleOfPersons:              "Круг лиц",
	KindSocialRelations:              "Общественные отношения",
	KindRationale:                    "Обоснование",
	KindTransitionPeriod:             "Переходный период",
	KindPlanDate:                     "Планируемая дата",
	KindCompliteDateAct:              "Дата акта",
	KindCompliteNumberDepAct:         "Номер ведомственного акта",
	KindCompliteNumberRegAct:         "Номер нормативного акта",
}

// idBearingKinds lists the scalar kinds that come paired with an "X"/"XId"
// sibling, per §4.1.1.
var idBearingKinds = map[MetadataKind]MetadataKind{
	KindStage:             KindStageID,
	KindStatus:            KindStatusID,
	KindRegulatoryImpact:  KindRegulatoryImpactID,
	KindProcedureResult:   KindProcedureResultID,
	KindKind:              KindKindID,
	KindDepartment:        KindDepartmentID,
	KindProcedure:         KindProcedureID,
}

// MetadataItem is a tagged variant carrying one named attribute of a
// project. Scalar variants use Value; the list variant
// (KindParallelStageFiles) uses Values.
type MetadataItem struct {
	Kind   MetadataKind `json:"kind"`
	Value  string       `json:"value,omitempty"`
	Values []string     `json:"values,omitempty"`
}

// TemplateKey is the lowercase snake_case variable name this item binds
// in the Summarizer/PostRenderer template context.
func (m MetadataItem) TemplateKey() string {
	return string(m.Kind)
}

// TemplateValue is the string rendered into the template context for
// this item. ParallelStageFiles is joined with ", " per §4.4.
func (m MetadataItem) TemplateValue() string {
	if m.Kind == KindParallelStageFiles {
		return strings.Join(m.Values, ", ")
	}
	return m.Value
}
