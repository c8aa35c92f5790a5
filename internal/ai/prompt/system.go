package prompt

import (
	"fmt"
	"strings"
	"time"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/model"
)

// ChatInput is everything the chat system prompt is composed from.
type ChatInput struct {
	AssistantName string
	FirmName      string
	UserName      string
	Caller        tools.Caller
	Settings      model.AssistantSettings
	Route         string
	Context       string
	Now           time.Time
}

var roleLabels = map[model.UserType]string{
	model.UserTypeAdmin:  "administrador(a) do escritório",
	model.UserTypeLawyer: "advogado(a)",
	model.UserTypeStaff:  "membro da equipe de apoio",
}

// ChatSystemPrompt composes the assistant instructions for one turn.
func ChatSystemPrompt(in ChatInput) string {
	name := in.Settings.Name
	if name == "" {
		name = in.AssistantName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Você é %s, assistente virtual do escritório de advocacia %s.\n", name, in.FirmName)
	fmt.Fprintf(&b, "Responda sempre em %s, com tom %s.\n", languageName(in.Settings.Language), in.Settings.Tone)
	fmt.Fprintf(&b, "Data de hoje: %s.\n\n", in.Now.Format("02/01/2006"))

	switch c := in.Caller.(type) {
	case tools.StaffCaller:
		role := roleLabels[c.Role]
		if role == "" {
			role = string(c.Role)
		}
		fmt.Fprintf(&b, "Você está falando com %s, %s.\n", displayName(in.UserName), role)
		b.WriteString("Use as ferramentas para consultar processos, clientes, tarefas e faturas do escritório antes de responder sobre eles. ")
		b.WriteString("Nunca invente dados. Quando uma ferramenta retornar requiresConfirmation, explique que a ação ficou pendente e só será aplicada depois que o usuário confirmar na interface.\n")
	case tools.ClientCaller:
		fmt.Fprintf(&b, "Você está falando com %s, cliente do escritório, pelo portal do cliente.\n", displayName(in.UserName))
		b.WriteString("Você só tem acesso aos processos, tarefas, faturas e documentos deste cliente; use as ferramentas para consultá-los. ")
		b.WriteString("Não dê parecer jurídico conclusivo; para orientações sobre estratégia, recomende falar com o advogado responsável. ")
		b.WriteString("Se uma informação não estiver disponível, diga isso com clareza.\n")
	}
	b.WriteString("Se uma ferramenta retornar um campo error, explique o problema de forma simples e sugira o próximo passo.\n")

	if in.Route != "" {
		fmt.Fprintf(&b, "\nO usuário está na página %s.\n", truncate(singleLine(in.Route), 200))
	}
	if strings.TrimSpace(in.Context) != "" {
		b.WriteString("\nContexto da página atual:\n")
		b.WriteString(in.Context)
		b.WriteString("\n")
	}
	return b.String()
}

func languageName(tag string) string {
	switch strings.ToLower(tag) {
	case "", "pt-br", "pt":
		return "português do Brasil"
	case "en", "en-us":
		return "inglês"
	case "es":
		return "espanhol"
	}
	return tag
}

func displayName(n string) string {
	if strings.TrimSpace(n) == "" {
		return "o usuário"
	}
	return n
}
