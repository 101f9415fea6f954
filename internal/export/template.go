package export

import (
	"fmt"

	"zujuan/internal/model"
)

// TemplateSlot is one numbered position in a paper template.
type TemplateSlot struct {
	Order        int                `json:"order"`
	QuestionType model.QuestionType `json:"questionType"`
	DefaultScore int                `json:"defaultScore"`
}

// PaperTemplate fixes the section layout and default scoring of a paper.
type PaperTemplate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Slots       []TemplateSlot `json:"slots"`
	TotalScore  int            `json:"totalScore"`
}

// gaokaoNew1 is the 2025 national paper I layout: 19 questions worth 150
// points (8 single choice, 3 multi choice, 3 fill-in, 5 free response).
func gaokaoNew1() PaperTemplate {
	var slots []TemplateSlot
	for i := 0; i < 8; i++ {
		slots = append(slots, TemplateSlot{Order: i + 1, QuestionType: model.TypeChoice, DefaultScore: 5})
	}
	for i := 0; i < 3; i++ {
		slots = append(slots, TemplateSlot{Order: 9 + i, QuestionType: model.TypeMulti, DefaultScore: 6})
	}
	for i := 0; i < 3; i++ {
		slots = append(slots, TemplateSlot{Order: 12 + i, QuestionType: model.TypeFillBlank, DefaultScore: 5})
	}
	for i, score := range []int{13, 15, 15, 17, 17} {
		slots = append(slots, TemplateSlot{Order: 15 + i, QuestionType: model.TypeSolve, DefaultScore: score})
	}
	return PaperTemplate{
		ID:          "gaokao_new_1",
		Name:        "2025 全国卷 I（新高考）",
		Description: "19 题：单选8、多选3、填空3、解答5",
		Slots:       slots,
		TotalScore:  150,
	}
}

// TemplateCustom marks a paper assembled without a blueprint; it carries
// no slots and is always accepted as a template type.
const TemplateCustom = "custom"

// Templates returns all known paper templates.
func Templates() []PaperTemplate {
	return []PaperTemplate{gaokaoNew1()}
}

// GetTemplate returns a template by id.
func GetTemplate(id string) (PaperTemplate, error) {
	for _, tpl := range Templates() {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return PaperTemplate{}, fmt.Errorf("unknown paper template %q", id)
}
