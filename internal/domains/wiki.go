// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package domains

// wikiDomains is a hand-curated list of fake news and health
// misinformation sites compiled from Wikipedia's list of fake news
// websites.
var wikiDomains = []string{
	"naturalnews.com", "healthimpactnews.com", "greenmedinfo.com", "mercola.com",
	"healthnutnews.com", "realfarmacy.com", "healthyholisticliving.com", "newstarget.com",
	"featureremedies.com", "medicalkidnap.com", "infowars.com", "wnd.com",
	"principia-scientific.com", "collective-evolution.com", "childrenshealthdefense.org",
	"truthkings.com", "goop.com", "foodbabe.com", "thetruthaboutcancer.com",
	"wakingtimes.com", "technocracy.news", "vaccineimpact.com",
	"stopmandatoryvaccination.com", "beforeitsnews.com", "bannedinfo.com",
	"preventdisease.com", "naturalsociety.com", "alternativemediasyndicate.com",
	"holistichealth.com", "prisonplanet.com", "banned.video", "brighteon.com",
	"yournewswire.com", "thepeoplesvoice.tv", "neonnettle.com", "newspunch.com",
	"americanews.com", "conservative101.com", "liberalsociety.com",
	"conservativebeaver.com", "torontotoday.net", "vancouvertimes.org",
	"denverguardian.com", "dailystormer.com", "gellerreport.com", "hoggwatch.com",
	"nationalfile.com", "trunews.com", "ancient-code.com", "dineal.com", "ewao.com",
	"galacticconnection.com", "geoengineeringwatch.org", "in5d.com",
	"responsibletechnology.org", "naturalblaze.com", "ripostelaique.com",
	"sciencevibe.com", "theasociatedpress.com", "cbs-news.us", "channel23news.com",
	"dailyviralbuzz.com", "now8news.com", "abcnews-us.com", "cnn-globalnews.com",
	"foxnews-us.com", "nbcnews11.com", "tmzbreaking.com", "viralspeech.com",
	"politicsfocus.com", "chicksonright.com", "climatedepot.com", "dailywire.com",
}

// Wiki returns a copy of the built-in misinformation domain list.
func Wiki() []string {
	out := make([]string, len(wikiDomains))
	copy(out, wikiDomains)
	return out
}
