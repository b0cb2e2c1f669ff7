package config

type RouteConfig interface {
	GetProtectedPaths() []string
	GetAuthOnlyPaths() []string
	GetLoginPath() string
	GetListenAddr() string
}

type Routes struct{}

var _ RouteConfig = Routes{}

var protectedPaths = []string{
	"/profile",
	"/dashboard",
	"/projects",
	"/settings",
	"/messages",
}

// Authenticated users are sent away from these.
var authOnlyPaths = []string{"/login", "/register"}

func (Routes) GetProtectedPaths() []string {
	return append([]string(nil), protectedPaths...)
}

func (Routes) GetAuthOnlyPaths() []string {
	return append([]string(nil), authOnlyPaths...)
}

func (Routes) GetLoginPath() string {
	return "/login"
}

// GetListenAddr is where the route guard serves pages in the CLI's serve mode.
func (Routes) GetListenAddr() string {
	return GetEnv("LISTEN_ADDR", ":3000")
}
