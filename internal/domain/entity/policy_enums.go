package entity

// PolicyScope определяет уровень, на котором действует документ политики
type PolicyScope string

const (
	PolicyScopePlatform PolicyScope = "PLATFORM"
	PolicyScopeTenant   PolicyScope = "TENANT"
)

// IsValid проверяет, что область действия известна
func (s PolicyScope) IsValid() bool {
	return s == PolicyScopePlatform || s == PolicyScopeTenant
}

// PolicyKey идентифицирует вид политики (условия, конфиденциальность и т.д.)
type PolicyKey string

const (
	PolicyKeyTerms                 PolicyKey = "TERMS"
	PolicyKeyPrivacy               PolicyKey = "PRIVACY"
	PolicyKeyCookies               PolicyKey = "COOKIES"
	PolicyKeyAcceptableUse         PolicyKey = "ACCEPTABLE_USE"
	PolicyKeyPOPIANotice           PolicyKey = "POPIA_NOTICE"
	PolicyKeyChildSafety           PolicyKey = "CHILD_SAFETY"
	PolicyKeyCommunicationsNotices PolicyKey = "COMMUNICATIONS_NOTICES"
	PolicyKeyApplicationTerms      PolicyKey = "APPLICATION_TERMS"
)

// AllPolicyKeys перечисляет все поддерживаемые ключи политик
var AllPolicyKeys = []PolicyKey{
	PolicyKeyTerms,
	PolicyKeyPrivacy,
	PolicyKeyCookies,
	PolicyKeyAcceptableUse,
	PolicyKeyPOPIANotice,
	PolicyKeyChildSafety,
	PolicyKeyCommunicationsNotices,
	PolicyKeyApplicationTerms,
}

// IsValid проверяет, что ключ входит в перечисление
func (k PolicyKey) IsValid() bool {
	for _, known := range AllPolicyKeys {
		if k == known {
			return true
		}
	}
	return false
}

// AcceptanceIntent описывает пользовательский сценарий, в котором было дано согласие
type AcceptanceIntent string

const (
	IntentApp   AcceptanceIntent = "app"
	IntentApply AcceptanceIntent = "apply"
	// IntentAdmin допустим в хранилище, но не достижим через публичные эндпоинты.
	IntentAdmin AcceptanceIntent = "admin"
)

// ParseIntent сопоставляет строку из запроса с намерением.
// Только литерал "apply" даёт IntentApply, всё остальное (включая пустую строку) - IntentApp.
func ParseIntent(raw string) AcceptanceIntent {
	if raw == string(IntentApply) {
		return IntentApply
	}
	return IntentApp
}
