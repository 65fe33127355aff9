// Package media готовит изображения к загрузке в профиль бота.
package media

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// botpicSide — сторона квадратного аватара, которую принимает
	// удалённый агент без пережатия.
	botpicSide = 640
	// minSourceSide — источники мельче не растягиваем, аватар выйдет
	// мыльным.
	minSourceSide = 150
)

// PrepareBotpic приводит исходную картинку к квадрату 640×640:
// кадрирует по центру с масштабированием и сохраняет PNG в dstDir.
// Возвращает путь готового файла.
func PrepareBotpic(srcPath, dstDir string) (string, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image %s: %w", srcPath, err)
	}
	if err := checkSource(img.Bounds()); err != nil {
		return "", fmt.Errorf("image %s: %w", srcPath, err)
	}

	square := imaging.Fill(img, botpicSide, botpicSide, imaging.Center, imaging.Lanczos)

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	dst := filepath.Join(dstDir, base+"_botpic.png")
	if err := imaging.Save(square, dst); err != nil {
		return "", fmt.Errorf("save botpic: %w", err)
	}
	return dst, nil
}

func checkSource(b image.Rectangle) error {
	if b.Dx() < minSourceSide || b.Dy() < minSourceSide {
		return fmt.Errorf("слишком маленькое изображение %dx%d, минимум %dx%d",
			b.Dx(), b.Dy(), minSourceSide, minSourceSide)
	}
	return nil
}
