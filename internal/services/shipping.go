package services

import (
	"net/url"
	"strings"
)

type carrier struct {
	name        string
	trackingURL string
	aliases     []string
}

var knownCarriers = []carrier{
	{name: "Delhivery", trackingURL: "https://www.delhivery.com/track/package/", aliases: []string{"delhivery"}},
	{name: "Blue Dart", trackingURL: "https://www.bluedart.com/web/guest/trackdartresult?trackFor=0&trackNo=", aliases: []string{"bluedart"}},
	{name: "India Post", trackingURL: "https://www.indiapost.gov.in/_layouts/15/dop.portal.tracking/trackconsignment.aspx?consignment=", aliases: []string{"indiapost", "speedpost"}},
	{name: "DHL", trackingURL: "https://www.dhl.com/in-en/home/tracking.html?tracking-id=", aliases: []string{"dhl", "dhlexpress"}},
	{name: "FedEx", trackingURL: "https://www.fedex.com/fedextrack/?trknbr=", aliases: []string{"fedex", "federalexpress"}},
}

func lookupCarrier(value string) (carrier, bool) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range knownCarriers {
		for _, alias := range c.aliases {
			if key == alias {
				return c, true
			}
		}
	}
	return carrier{}, false
}

// NormalizeCarrierName keeps custom carriers untouched and normalizes known ones.
func NormalizeCarrierName(name string) string {
	trimmed := strings.TrimSpace(name)
	if c, ok := lookupCarrier(trimmed); ok {
		return c.name
	}
	return trimmed
}

// BuildTrackingURL returns a carrier tracking page, or "" for unknown carriers.
func BuildTrackingURL(carrierName, trackingNumber string) string {
	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return ""
	}
	c, ok := lookupCarrier(carrierName)
	if !ok {
		return ""
	}
	return c.trackingURL + url.QueryEscape(number)
}
