package internal

import (
	"dashd/internal/controllers"
	"dashd/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController, uploadController *controllers.UploadController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/status", http.HandlerFunc(apiController.Status))
	routers.Get("/search/column", http.HandlerFunc(apiController.SearchColumn))
	routers.Get("/search/value", http.HandlerFunc(apiController.SearchValue))
	routers.Get("/stats", http.HandlerFunc(apiController.GetStats))
	routers.Get("/history", http.HandlerFunc(apiController.GetHistory))
	routers.Post("/identity", http.HandlerFunc(apiController.AttachIdentity))
	routers.Delete("/identity", http.HandlerFunc(apiController.DetachIdentity))
	routers.Post("/upload", http.HandlerFunc(uploadController.Upload))
	routers.Get("/upload/error", http.HandlerFunc(uploadController.GetUploadError))
	routers.Delete("/upload/error", http.HandlerFunc(uploadController.DismissUploadError))
	routers.Post("/merge", http.HandlerFunc(uploadController.Merge))
	return routers
}
