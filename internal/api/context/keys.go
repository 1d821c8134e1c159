package context

type Key string

const (
	Claims       Key = "claims"
	Actor        Key = "actor"
	Organization Key = "organization"
	Params       Key = "params"
)
