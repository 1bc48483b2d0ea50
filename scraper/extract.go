package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/pricewatch/config"
	"github.com/aluiziolira/pricewatch/models"
	"github.com/aluiziolira/pricewatch/parser"
)

// Extract pulls listings out of a result page. found is false when the page
// has no listing container, which usually means the page was not a result
// list at all (a captcha, an error page, or a layout change).
func Extract(root *goquery.Selection, sel config.Selectors) (records []*models.ProductRecord, found bool) {
	scope := root
	if sel.Container != "" {
		scope = root.Find(sel.Container)
		if scope.Length() == 0 {
			return nil, false
		}
	}

	scope.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		records = append(records, extractProduct(item, sel))
	})
	return records, true
}

func extractProduct(item *goquery.Selection, sel config.Selectors) *models.ProductRecord {
	var title string
	for _, selector := range sel.Title {
		title = strings.TrimSpace(item.Find(selector).First().Text())
		if title != "" {
			break
		}
	}

	whole := childText(item, sel.PriceWhole)
	fraction := ""
	if whole != "" {
		fraction = childText(item, sel.PriceFraction)
	}

	key := ""
	if sel.KeyAttr != "" {
		key = strings.TrimSpace(item.AttrOr(sel.KeyAttr, ""))
	}

	return &models.ProductRecord{
		Title:  title,
		Price:  parser.ParsePrice(whole, fraction),
		Rating: childText(item, sel.Rating),
		Key:    key,
	}
}

func childText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

func nextHref(root *goquery.Selection, sel config.Selectors) string {
	if sel.Next == "" {
		return ""
	}
	return strings.TrimSpace(root.Find(sel.Next).First().AttrOr("href", ""))
}
