// Package responder produces the assistant's canned replies. Replies are
// chosen by an ordered keyword table; the first rule whose keyword occurs in
// the lower-cased message wins.
package responder

import (
	"fmt"
	"strings"

	"github.com/xaenox/gpt-vault/internal/models"
)

const (
	RuleReport   = "report"
	RuleUpload   = "upload"
	RuleDownload = "download"
	RuleTheme    = "theme"
	RuleCSV      = "csv"
	RulePDF      = "pdf"
	RuleFallback = "fallback"
)

// Request is everything a reply may depend on.
type Request struct {
	Text        string
	Attachments []models.Attachment
	Identity    models.Identity
}

type Rule struct {
	Name     string
	Keywords []string
	Reply    func(Request) string
}

func (r Rule) matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type Responder struct {
	rules    []Rule
	fallback Rule
}

func New() *Responder {
	return &Responder{
		rules: []Rule{
			{Name: RuleReport, Keywords: []string{"relatório", "relatorio", "report"}, Reply: replyReport},
			{Name: RuleUpload, Keywords: []string{"upload", "enviar", "send"}, Reply: replyUpload},
			{Name: RuleDownload, Keywords: []string{"download", "baixar"}, Reply: replyDownload},
			{Name: RuleTheme, Keywords: []string{"tema", "escuro", "claro", "theme", "dark", "light"}, Reply: replyTheme},
			{Name: RuleCSV, Keywords: []string{"csv"}, Reply: replyCSV},
			{Name: RulePDF, Keywords: []string{"pdf"}, Reply: replyPDF},
		},
		fallback: Rule{Name: RuleFallback, Reply: replyFallback},
	}
}

// Rules returns the table in evaluation order, fallback excluded.
func (r *Responder) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Match returns the rule that handles text.
func (r *Responder) Match(text string) Rule {
	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		if rule.matches(lower) {
			return rule
		}
	}
	return r.fallback
}

func (r *Responder) Respond(req Request) string {
	return r.Match(req.Text).Reply(req)
}

func replyReport(req Request) string {
	if req.Identity.IsAdmin() {
		return "Perfeito! Vou gerar um relatório detalhado com base nos dados disponíveis. Como administrador, você tem acesso completo a todas as métricas e análises."
	}
	return "Entendo que você quer um relatório. Como usuário comum, posso gerar relatórios básicos dos seus próprios dados. Precisa de algo específico?"
}

func replyUpload(req Request) string {
	if len(req.Attachments) > 0 {
		types := make([]string, len(req.Attachments))
		for i, a := range req.Attachments {
			types[i] = a.MimeType
		}
		return fmt.Sprintf("Excelente! Recebi %d arquivo(s): %s. Vou analisar o conteúdo e extrair as informações relevantes para você.",
			len(req.Attachments), strings.Join(types, ", "))
	}
	if req.Identity.IsAdmin() {
		return "Como administrador, você pode fazer upload ilimitado de arquivos. Suporto PDF, CSV, DOCX e outros formatos. O que gostaria de enviar?"
	}
	limit := req.Identity.Permissions.UploadLimit
	if !limit.Bounded() {
		limit = 0
	}
	return fmt.Sprintf("Você pode fazer upload de arquivos. Seu limite atual é de %s arquivos por mês. Que tipo de arquivo gostaria de enviar?", limit)
}

func replyDownload(req Request) string {
	if req.Identity.IsAdmin() {
		return "Como administrador, você tem acesso irrestrito para download. Posso gerar relatórios em PDF, gráficos em PNG, ou exportar dados em CSV. O que precisa?"
	}
	return "Posso ajudá-lo a baixar seus arquivos autorizados. Que tipo de arquivo está procurando?"
}

func replyTheme(Request) string {
	return `Você pode alternar entre tema claro e escuro usando o botão no canto superior direito da tela, ou me peça: "Ative o tema escuro" ou "Ative o tema claro".`
}

func replyCSV(Request) string {
	return "Ótimo! Para arquivos CSV, posso extrair dados, criar gráficos, calcular estatísticas e gerar relatórios. Você tem algum arquivo CSV específico em mente?"
}

func replyPDF(Request) string {
	return "Perfeito! Com PDFs, posso fazer resumos automáticos, extrair texto e dados importantes, e criar análises detalhadas. Quer enviar um PDF para análise?"
}

func replyFallback(req Request) string {
	if req.Identity.IsAdmin() {
		return "Como administrador, você tem acesso completo ao sistema. Posso ajudá-lo com análises avançadas, relatórios detalhados, gerenciamento de usuários e muito mais. O que precisa hoje?"
	}
	return "Entendi sua solicitação! Como usuário, posso ajudá-lo com análise de documentos pessoais, resumos e assistência geral. Como posso ser útil?"
}
