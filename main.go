package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/config"
	"github.com/Aashish23092/invoice-extractor/handler"
	"github.com/Aashish23092/invoice-extractor/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zap.L().Sync()

	invoiceService, err := service.NewInvoiceServiceFromConfig(cfg)
	if err != nil {
		zap.L().Fatal("failed to initialize invoice service", zap.Error(err))
	}

	invoiceHandler := handler.NewInvoiceHandler(invoiceService, service.NewReportWriter())
	router := handler.NewRouter(invoiceHandler, cfg.Server.MaxUploadMB)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zap.L().Info("starting invoice extractor",
		zap.String("addr", addr),
		zap.Strings("templates", templateNames(invoiceService)),
		zap.Bool("table_extractor", !cfg.Table.Disabled),
	)
	if err := router.Run(addr); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func templateNames(s *service.InvoiceService) []string {
	infos := s.Templates()
	names := make([]string, 0, len(infos))
	for _, t := range infos {
		names = append(names, t.Name)
	}
	return names
}
