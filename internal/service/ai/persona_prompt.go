package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/persona"
)

// PromptTemplate 在persona指令之外附加的提示模板
type PromptTemplate struct {
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager 管理persona的系统提示
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager 创建带内置模板的提示管理器
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate 获取persona对应的提示模板
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt returns the persona instruction, extended with template
// guidance when the persona has one. The result only depends on the persona.
func (pm *PersonaPromptManager) BuildSystemPrompt(p persona.Persona) string {
	base := strings.TrimSpace(p.Instruction)
	if base == "" {
		base = pm.buildBasicSystemPrompt(p)
	}

	template, err := pm.GetPromptTemplate(p.ID)
	if err != nil || (len(template.PersonalityHints) == 0 && len(template.ContextRules) == 0) {
		return base
	}

	var builder strings.Builder
	builder.WriteString(base)
	if len(template.PersonalityHints) > 0 {
		builder.WriteString("\n\nKepribadian:\n- ")
		builder.WriteString(strings.Join(template.PersonalityHints, "\n- "))
	}
	if len(template.ContextRules) > 0 {
		builder.WriteString("\n\nAturan percakapan:\n- ")
		builder.WriteString(strings.Join(template.ContextRules, "\n- "))
	}
	return builder.String()
}

func (pm *PersonaPromptManager) buildBasicSystemPrompt(p persona.Persona) string {
	return fmt.Sprintf("You are %s, %s. Keep a %s tone.", p.Name, p.Title, p.Tone)
}

// loadDefaultTemplates 为内置人格注册模板。默认的学习教练只用自身指令，
// 因此没有模板，系统提示与指令完全一致。
func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates[persona.SocraticID] = &PromptTemplate{
		PersonalityHints: []string{
			"Ajukan pertanyaan penuntun sebelum memberi jawaban",
			"Akui usaha siswa dan beri semangat",
		},
		ContextRules: []string{
			"Pecah soal sulit menjadi langkah-langkah kecil",
			"Tutup dengan satu pertanyaan latihan",
		},
	}
}
