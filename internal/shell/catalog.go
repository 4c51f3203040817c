package shell

import "github.com/xaenox/gpt-vault/internal/models"

type Command struct {
	Label       string
	Description string
	Text        string
}

type Category struct {
	Name      string
	AdminOnly bool
	Commands  []Command
}

var catalog = []Category{
	{
		Name: "Análise de Arquivos",
		Commands: []Command{
			{"Analisar PDF", "Extrair informações de um documento PDF", "Quero enviar um PDF para análise e extração de dados"},
			{"Processar CSV", "Analisar dados de planilha CSV", "Preciso processar um arquivo CSV e gerar insights"},
			{"Resumir Documento", "Criar resumo automático de documentos", "Faça um resumo detalhado do documento que vou enviar"},
		},
	},
	{
		Name: "Relatórios",
		Commands: []Command{
			{"Gerar Relatório", "Criar relatório com base nos dados", "Gere um relatório completo com base nos dados disponíveis"},
			{"Estatísticas", "Calcular estatísticas dos dados", "Quero ver estatísticas e métricas dos meus dados"},
			{"Visualização", "Criar gráficos e visualizações", "Crie gráficos visuais dos dados processados"},
		},
	},
	{
		Name: "Downloads",
		Commands: []Command{
			{"Baixar Relatório PDF", "Download de relatório em PDF", "Quero baixar o relatório gerado em formato PDF"},
			{"Exportar Dados", "Exportar dados processados", "Exportar os dados processados em formato CSV"},
			{"Baixar Gráficos", "Download de gráficos e visualizações", "Fazer download dos gráficos em alta resolução"},
		},
	},
	{
		Name: "Configurações",
		Commands: []Command{
			{"Tema Escuro", "Ativar modo escuro", "Ativar o tema escuro"},
			{"Tema Claro", "Ativar modo claro", "Ativar o tema claro"},
			{"Ajuda", "Mostrar comandos disponíveis", "Mostrar todos os comandos disponíveis para meu perfil"},
		},
	},
	{
		Name:      "Administração",
		AdminOnly: true,
		Commands: []Command{
			{"Relatório de Usuários", "Ver estatísticas de todos os usuários", "Gere um relatório completo de atividade dos usuários"},
			{"Análise Avançada", "Análises completas do sistema", "Preciso de uma análise avançada de todos os dados do sistema"},
			{"Backup de Dados", "Fazer backup de todos os dados", "Gerar backup completo de todos os dados e relatórios"},
		},
	},
}

// QuickCommands are the shortcuts offered next to the chat input.
var QuickCommands = []Command{
	{"Gerar Relatório", "", "Quero gerar um relatório com base nos dados disponíveis"},
	{"Analisar CSV", "", "Preciso analisar dados de um arquivo CSV"},
	{"Download de Dados", "", "Quero baixar meus dados processados"},
}

// Catalog returns the command categories visible to role.
func Catalog(role models.Role) []Category {
	out := make([]Category, 0, len(catalog))
	for _, c := range catalog {
		if c.AdminOnly && role != models.RoleAdmin {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Flatten lists the commands of categories in display order. Bot and
// console users pick a command by its 1-based position in this list.
func Flatten(categories []Category) []Command {
	var out []Command
	for _, c := range categories {
		out = append(out, c.Commands...)
	}
	return out
}
