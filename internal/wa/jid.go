package wa

import (
	"regexp"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/felipe/zapgateway/internal/errs"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// CleanPhone remove formatação comum de números de telefone
func CleanPhone(phone string) string {
	cleaned := strings.NewReplacer(
		"+", "",
		" ", "",
		"-", "",
		"(", "",
		")", "",
		".", "",
	).Replace(phone)

	return cleaned
}

// IsValidPhone verifica se o número tem entre 10 e 15 dígitos
func IsValidPhone(phone string) bool {
	cleaned := CleanPhone(phone)

	if !digitsOnly.MatchString(cleaned) {
		return false
	}

	return len(cleaned) >= 10 && len(cleaned) <= 15
}

// NormalizeE164 converte o número para o formato E.164 (+<dígitos>).
// A operação é idempotente: normalizar um número já normalizado
// retorna o mesmo valor.
func NormalizeE164(phone string) (string, error) {
	cleaned := CleanPhone(phone)

	if !digitsOnly.MatchString(cleaned) || len(cleaned) < 10 || len(cleaned) > 15 {
		return "", errs.Validation("phone", "must be 10-15 digits, optionally formatted")
	}

	return "+" + cleaned, nil
}

// ParseUserJID converte um número de telefone para JID de usuário
func ParseUserJID(phone string) (types.JID, error) {
	if !IsValidPhone(phone) {
		return types.EmptyJID, errs.Validation("phone", "invalid phone number format")
	}

	return types.ParseJID(CleanPhone(phone) + "@s.whatsapp.net")
}

// ParseGroupJID converte um identificador de grupo para JID de grupo
func ParseGroupJID(groupID string) (types.JID, error) {
	if strings.Contains(groupID, "@") {
		jid, err := types.ParseJID(groupID)
		if err != nil {
			return types.EmptyJID, errs.Validation("group_jid", err.Error())
		}
		if jid.Server != types.GroupServer {
			return types.EmptyJID, errs.Validation("group_jid", "not a group JID")
		}
		return jid, nil
	}

	return types.ParseJID(groupID + "@" + types.GroupServer)
}

// ParseDestinationJID aceita número de usuário ou JID de grupo
func ParseDestinationJID(to string) (types.JID, error) {
	if strings.HasSuffix(to, "@"+types.GroupServer) {
		return ParseGroupJID(to)
	}
	return ParseUserJID(to)
}

// NumberFromJID extrai o número E.164 da parte user de um JID
func NumberFromJID(jid types.JID) string {
	if jid.User == "" {
		return ""
	}
	return "+" + jid.User
}
