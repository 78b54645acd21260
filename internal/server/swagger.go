package server

//go:generate swag init -g swagger.go --parseDependency --parseInternal -o ../../docs/swagger

// @title phishscan API
// @version 0.1
// @description Scores emails for phishing risk from heuristic rules and URL reputation.
// @contact.name phishscan Maintainers
// @contact.url https://github.com/raysh454/phishscan
// @BasePath /
