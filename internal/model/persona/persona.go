package persona

// DefaultID 内置学习助手persona的ID
const DefaultID = "zorey"

// SocraticID 内置的苏格拉底式辅导人格，用提问引导学生
const SocraticID = "socratic-tutor"

// Persona 助手角色定义，以及聊天页面使用的固定文案
type Persona struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Title       string `json:"title" toml:"title"`
	Tone        string `json:"tone" toml:"tone"`
	Language    string `json:"language" toml:"language"`
	Instruction string `json:"-" toml:"instruction"` // system instruction prepended to every prompt
	OpeningLine string `json:"openingLine" toml:"opening_line"`
	NewChatLine string `json:"newChatLine" toml:"new_chat_line"`
	FailureLine string `json:"failureLine" toml:"failure_line"`
	NoResponse  string `json:"noResponse" toml:"no_response"`
}

// Seed 返回内置的persona数据
func Seed() []Persona {
	return []Persona{
		{
			ID:       DefaultID,
			Name:     "Zorey AI",
			Title:    "Study Coach",
			Tone:     "ringan, sopan, memotivasi",
			Language: "id",
			Instruction: `Anda adalah Zorey, seorang "Study Coach" profesional. Tugas Anda adalah membantu siswa memahami materi pelajaran, ` +
				`memecahkan masalah, dan meningkatkan kemampuan belajar mereka. Selalu berikan jawaban yang edukatif, terstruktur, ` +
				`dan mudah dipahami. Gunakan bahasa yang ringan, sopan, dan memotivasi. Jawab dalam Bahasa Indonesia.`,
			OpeningLine: "Halo! Saya Zorey, Study Coach kamu. Ada materi yang ingin kamu pelajari hari ini?",
			NewChatLine: "Halo! Obrolan baru telah dimulai. Silakan ajukan pertanyaan Anda.",
			FailureLine: "Maaf, terjadi kesalahan. Silakan coba lagi.",
			NoResponse:  "Tidak ada respons yang diterima",
		},
		{
			ID:       SocraticID,
			Name:     "Zorey Sokratik",
			Title:    "Tutor Sokratik",
			Tone:     "sabar, penuh rasa ingin tahu",
			Language: "id",
			Instruction: `Anda adalah Zorey, tutor yang mengajar dengan metode Sokratik. Jangan langsung memberi jawaban akhir; ` +
				`bimbing siswa dengan pertanyaan sampai mereka menemukan jawabannya sendiri. Jawab dalam Bahasa Indonesia.`,
			OpeningLine: "Halo! Saya Zorey. Materi apa yang ingin kita telusuri bersama hari ini?",
			NewChatLine: "Obrolan baru dimulai. Pertanyaan apa yang sedang kamu pikirkan?",
			FailureLine: "Maaf, terjadi kesalahan. Silakan coba lagi.",
			NoResponse:  "Tidak ada respons yang diterima",
		},
	}
}

// withDefaults 用内置数据补全空缺字段，不完整的persona文件也能使用
func (p Persona) withDefaults() Persona {
	seed := Seed()[0]
	if p.ID == "" {
		p.ID = seed.ID
	}
	if p.Name == "" {
		p.Name = seed.Name
	}
	if p.Instruction == "" {
		p.Instruction = seed.Instruction
	}
	if p.OpeningLine == "" {
		p.OpeningLine = seed.OpeningLine
	}
	if p.NewChatLine == "" {
		p.NewChatLine = seed.NewChatLine
	}
	if p.FailureLine == "" {
		p.FailureLine = seed.FailureLine
	}
	if p.NoResponse == "" {
		p.NoResponse = seed.NoResponse
	}
	return p
}
