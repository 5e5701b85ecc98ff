package http

import (
	"net/http"

	"github.com/go-kit/log"

	"github.com/donmikel/gitdrop/applications/server"
	"github.com/donmikel/gitdrop/applications/server/config"
)

func NewHTTPServer(conf config.Api, uploadConf config.Upload, uploadService server.UploadService, logger log.Logger) *http.Server {
	mux := NewRouter(uploadService, uploadConf, logger)
	return &http.Server{
		Addr:    conf.HTTPAddr,
		Handler: mux,
	}
}
