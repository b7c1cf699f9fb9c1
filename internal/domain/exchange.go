package domain

// Exchange identifiers as they appear in vendor suffixes (IF2401.CFFEX).
const (
	ExchangeCFFEX = "CFFEX"
	ExchangeSHFE  = "SHFE"
	ExchangeDCE   = "DCE"
	ExchangeCZCE  = "CZCE"
)
