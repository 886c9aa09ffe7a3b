package news

import "time"

// FallbackSource serves curated articles when the live API is rate limited
// or failing. Content rotates by day of year so repeated calls on the same
// day return the same slice, and seasonal items are appended for timeliness.
type FallbackSource struct {
	now func() time.Time
}

// NewFallbackSource constructs a fallback source with an injectable clock.
func NewFallbackSource(now func() time.Time) *FallbackSource {
	if now == nil {
		now = time.Now
	}
	return &FallbackSource{now: now}
}

// Articles returns curated content for the requested categories. A category
// without a curated table contributes nothing.
func (f *FallbackSource) Articles(categories []Category) []Article {
	current := f.now()
	rotation := current.YearDay() % 10

	var out []Article
	for _, category := range categories {
		table := fallbackTables[category]
		if len(table) == 0 {
			continue
		}
		start := rotation % len(table)
		for k := 0; k < 2 && k < len(table); k++ {
			entry := table[(start+k)%len(table)]
			entry.Category = category
			out = append(out, entry)
		}
	}
	return append(out, f.seasonal(current, categories)...)
}

func (f *FallbackSource) seasonal(current time.Time, categories []Category) []Article {
	month := current.Month()
	var out []Article

	if month >= time.September && month <= time.December && contains(categories, CategoryTechnology) {
		out = append(out, Article{
			Title:       "🎤 Tech Conference Season Unveils Industry Innovations",
			URL:         "https://techconferences.com/season-highlights",
			Description: "Major technology conferences are showcasing the latest innovations in AI, cloud computing, and emerging technologies.",
			Category:    CategoryTechnology,
		})
	}

	if contains(categories, CategorySports) {
		switch {
		case month >= time.September || month <= time.February:
			out = append(out, Article{
				Title:       "🏈 Fall Sports Season Reaches Peak Excitement",
				URL:         "https://sports.com/fall-season-peak",
				Description: "Football, basketball, and hockey seasons are delivering thrilling matchups and unexpected results across all leagues.",
				Category:    CategorySports,
			})
		case month >= time.March && month <= time.June:
			out = append(out, Article{
				Title:       "⚾ Spring Training and March Madness Captivate Fans",
				URL:         "https://sports.com/spring-excitement",
				Description: "Baseball spring training and college basketball tournaments are generating excitement as teams prepare for championship runs.",
				Category:    CategorySports,
			})
		}
	}
	return out
}

func contains(categories []Category, c Category) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}

var fallbackTables = map[Category][]Article{
	CategoryTechnology: {
		{
			Title:       "🚀 AI Breakthrough: New Language Model Achieves 95% Accuracy",
			URL:         "https://techcrunch.com/ai-breakthrough-2025",
			Description: "Researchers have developed a revolutionary AI system that demonstrates unprecedented accuracy in natural language understanding and generation tasks.",
		},
		{
			Title:       "💻 Quantum Computing Makes Commercial Debut",
			URL:         "https://arstechnica.com/quantum-computing-commercial",
			Description: "The first commercially viable quantum computer has been deployed for real-world applications, marking a milestone in computing history.",
		},
		{
			Title:       "🔐 Cybersecurity Alert: New Zero-Day Vulnerability Discovered",
			URL:         "https://securitynews.com/zero-day-alert",
			Description: "Security researchers have identified a critical vulnerability affecting millions of devices worldwide. Patches are being deployed urgently.",
		},
		{
			Title:       "📱 Revolutionary Battery Technology Promises Week-Long Phone Life",
			URL:         "https://techreview.com/battery-breakthrough",
			Description: "Scientists have developed a new battery technology that could extend smartphone battery life to over a week on a single charge.",
		},
		{
			Title:       "🌐 Internet Infrastructure Gets Major Upgrade",
			URL:         "https://networkworld.com/infrastructure-upgrade",
			Description: "Global internet infrastructure receives significant improvements, promising faster speeds and better reliability for users worldwide.",
		},
	},
	CategorySports: {
		{
			Title:       "🏆 Championship Finals Set Record Viewership",
			URL:         "https://espn.com/championship-record-viewership",
			Description: "This year's championship finals have broken all previous viewership records, with millions of fans tuning in globally.",
		},
		{
			Title:       "⚽ Transfer Window Shakeup: Star Player Changes Teams",
			URL:         "https://sportsnet.com/transfer-window-shakeup",
			Description: "The transfer window has seen some surprising moves as top athletes switch teams in preparation for the upcoming season.",
		},
		{
			Title:       "🥇 Olympic Preparations Intensify Across Multiple Disciplines",
			URL:         "https://olympics.com/preparation-update",
			Description: "Athletes worldwide are intensifying their training as the next Olympic Games approach, with several records already being broken in qualifiers.",
		},
		{
			Title:       "🏀 Rookie Sensation Takes League by Storm",
			URL:         "https://nba.com/rookie-sensation",
			Description: "A new rookie player has been making headlines with exceptional performances, earning comparisons to legendary players.",
		},
		{
			Title:       "🏁 Racing Season Delivers Thrilling Competition",
			URL:         "https://motorsport.com/thrilling-season",
			Description: "This racing season has been one of the most competitive in recent years, with multiple drivers vying for the championship title.",
		},
	},
	CategoryScience: {
		{
			Title:       "🧬 Gene Therapy Breakthrough Offers Hope for Rare Diseases",
			URL:         "https://nature.com/gene-therapy-breakthrough",
			Description: "Researchers have achieved a major breakthrough in gene therapy, offering new treatment options for previously incurable genetic conditions.",
		},
		{
			Title:       "🌌 Webb Telescope Discovers Potentially Habitable Exoplanet",
			URL:         "https://nasa.gov/webb-habitable-planet",
			Description: "The James Webb Space Telescope has identified a new exoplanet in the habitable zone of its star, showing signs of atmospheric water vapor.",
		},
		{
			Title:       "🦠 New Antibiotic Effective Against Resistant Bacteria",
			URL:         "https://sciencemag.org/new-antibiotic",
			Description: "Scientists have developed a novel antibiotic that shows promise against drug-resistant bacterial infections, potentially saving countless lives.",
		},
		{
			Title:       "🧠 Brain Implant Helps Paralyzed Patients Regain Movement",
			URL:         "https://sciencenews.org/brain-implant-movement",
			Description: "A revolutionary brain-computer interface has enabled paralyzed patients to control robotic limbs with their thoughts alone.",
		},
		{
			Title:       "🌱 Breakthrough in Carbon Capture Technology",
			URL:         "https://environmentalscience.org/carbon-capture",
			Description: "Researchers have developed an efficient method for capturing carbon dioxide from the atmosphere, offering hope in the fight against climate change.",
		},
	},
	CategoryBusiness: {
		{
			Title:       "📈 Tech Stocks Rally as AI Investments Surge",
			URL:         "https://bloomberg.com/tech-stocks-rally",
			Description: "Technology stocks have seen significant gains as investors continue to pour money into artificial intelligence and automation companies.",
		},
		{
			Title:       "🏪 E-commerce Giants Expand into Physical Retail",
			URL:         "https://retailnews.com/ecommerce-physical-expansion",
			Description: "Major online retailers are investing heavily in physical stores, creating a hybrid shopping experience for consumers.",
		},
		{
			Title:       "💰 Startup Funding Reaches New Heights in Q3",
			URL:         "https://venturebeat.com/startup-funding-record",
			Description: "Venture capital funding for startups has reached unprecedented levels this quarter, with particular interest in sustainable technology.",
		},
		{
			Title:       "🌍 Global Supply Chains Adapt to New Challenges",
			URL:         "https://supplychaindigital.com/global-adaptation",
			Description: "Companies worldwide are restructuring their supply chains to become more resilient and sustainable in the face of ongoing global challenges.",
		},
		{
			Title:       "🏦 Central Banks Consider Digital Currency Implementation",
			URL:         "https://financialtimes.com/digital-currency-implementation",
			Description: "Several central banks are moving closer to launching their own digital currencies, potentially reshaping the global financial system.",
		},
	},
	CategoryHealth: {
		{
			Title:       "💊 Revolutionary Cancer Treatment Shows Promising Results",
			URL:         "https://cancerresearch.org/revolutionary-treatment",
			Description: "A new immunotherapy treatment has shown remarkable success in clinical trials, offering hope for patients with advanced cancer.",
		},
		{
			Title:       "🧘 Mental Health Awareness Leads to Policy Changes",
			URL:         "https://mentalhealthnews.org/policy-changes",
			Description: "Growing awareness of mental health issues has prompted governments to implement new policies supporting mental wellness programs.",
		},
		{
			Title:       "🩺 AI-Powered Diagnostics Improve Early Disease Detection",
			URL:         "https://medicalai.com/diagnostic-improvement",
			Description: "Artificial intelligence systems are revolutionizing medical diagnostics, enabling earlier and more accurate disease detection.",
		},
		{
			Title:       "🏃 Exercise Benefits Extended Lifespan in New Study",
			URL:         "https://healthstudies.org/exercise-longevity",
			Description: "A comprehensive long-term study confirms that regular exercise significantly extends lifespan and improves quality of life.",
		},
		{
			Title:       "🌿 Natural Medicine Integration in Modern Healthcare",
			URL:         "https://integrativemedicine.org/natural-integration",
			Description: "Healthcare systems are increasingly incorporating traditional and natural medicine approaches alongside conventional treatments.",
		},
	},
	CategoryEnvironment: {
		{
			Title:       "🌊 Ocean Cleanup Project Achieves Major Milestone",
			URL:         "https://oceancleanup.com/major-milestone",
			Description: "The Ocean Cleanup project has successfully removed tons of plastic waste from the Pacific, marking a significant environmental achievement.",
		},
		{
			Title:       "☀️ Solar Energy Costs Drop to Historic Lows",
			URL:         "https://renewableenergy.org/solar-costs-drop",
			Description: "The cost of solar energy has reached an all-time low, making renewable energy more accessible and economically viable than ever.",
		},
		{
			Title:       "🌳 Reforestation Efforts Show Measurable Climate Impact",
			URL:         "https://climateaction.org/reforestation-impact",
			Description: "Large-scale reforestation projects are showing significant positive impacts on local climates and biodiversity conservation.",
		},
		{
			Title:       "♻️ Circular Economy Initiatives Gain Global Momentum",
			URL:         "https://circulareconomy.org/global-momentum",
			Description: "Businesses and governments worldwide are adopting circular economy principles to reduce waste and promote sustainability.",
		},
		{
			Title:       "🌀 Advanced Weather Prediction Improves Disaster Preparedness",
			URL:         "https://weatherscience.org/prediction-improvement",
			Description: "New meteorological technologies are providing more accurate weather predictions, helping communities better prepare for natural disasters.",
		},
	},
}
