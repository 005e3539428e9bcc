package access

type AccessState string

const (
	AccessFree   AccessState = "free"
	AccessFull   AccessState = "full"
	AccessGrace  AccessState = "grace"
	AccessLocked AccessState = "locked"
)
