package reminder

// Phrases rotate through weekly nudges in order.
var Phrases = []string{
	"Hey there, wisdom seeker! Your weekly dose of brain candy is ready. Dive in with /wisdom!",
	"Knock knock, who's there? It's your weekly reminder to check out your latest nuggets! Type /wisdom.",
	"Don't let your insights gather dust! Your fresh wisdom awaits. Hit /wisdom for a refresh.",
	"Feeling a little... un-nuggeted? Your weekly wisdom top-up is here. Just /wisdom away!",
	"Your brain called, it wants its weekly wisdom. Answer with /wisdom!",
	"Time to unwrap some mental treats! Your wisdom nuggets are fresh and ready. Type /wisdom.",
	"Shake off the Monday blues with a dose of brilliance! Your weekly wisdom is hot off the press. Try /wisdom.",
	"Curiosity is calling! Your weekly dive into your highlights is here. Don't forget to /wisdom.",
	"What's smarter than a smart cookie? You, after checking your weekly wisdom! Get it with /wisdom.",
	"Ding dong! Your weekly wisdom delivery has arrived. Go on, open it with /wisdom.",
	"Ready for an 'aha!' moment? Your personalized wisdom nuggets are just a /wisdom away.",
	"Your secret weapon for a smarter week? Your highlight wisdom! Access it with /wisdom.",
	"Before the week gets wild, grab your wisdom shield! Your nuggets await with /wisdom.",
	"Level up your mind! Your weekly wisdom boost is here. Tap /wisdom to begin.",
	"Your brain's personal trainer says: 'Time for your weekly wisdom workout!' Send /wisdom.",
	"Don't just scroll, grow! Your weekly wisdom reminder is here. Discover with /wisdom.",
	"A week without wisdom is like... well, you know. Get your fix with /wisdom!",
	"Your weekly reminder: You're brilliant, and your highlights prove it! Check them with /wisdom.",
	"The oracle of your Kindle has spoken! Your weekly wisdom is ready. Say /wisdom.",
	"Unlock new perspectives! Your weekly wisdom gems are polished and waiting. Use /wisdom.",
	"Hey! Just a little nudge. Your wisdom insights are eager to be revisited. Send /wisdom.",
	"This message is a sign: It's wisdom o'clock! Get your weekly knowledge drop with /wisdom.",
	"Got 30 seconds? That's all it takes for a wisdom spark! Your weekly nuggets await. Try /wisdom.",
	"The week's big question: Have you claimed your wisdom yet? It's here with /wisdom.",
	"Your personalized wisdom playlist is refreshed! Hit play with /wisdom.",
	"Feeling philosophical? Or just need a good thought? Your weekly highlights are ready. Use /wisdom.",
	"Don't forget the brilliance you've collected! Your weekly reminder to revisit. Type /wisdom.",
	"Your brain's weekly pick-me-up: fresh wisdom nuggets! Claim yours with /wisdom.",
	"Let's get smart! Your weekly reminder to dive into your personal insights. Send /wisdom.",
	"The secret to a thoughtful week? Your highlights! Grab your weekly dose with /wisdom.",
	"Your weekly wisdom alert! Prepare for some delightful mental food. Just /wisdom.",
	"It's like a treasure hunt, but the treasure is knowledge! Your weekly nuggets are hidden behind /wisdom.",
	"Your future self will thank you for this weekly wisdom check. Go on, /wisdom.",
	"Mind matters! And so do your highlights. Get your weekly intellectual boost with /wisdom.",
	"Don't leave your insights hanging! They want to be seen. Your weekly reminder to /wisdom.",
	"Your personal library is calling! Weekly wisdom updates available. Type /wisdom.",
	"Make this week smarter than the last! Your weekly wisdom nudge is here. Send /wisdom.",
	"A little spark of insight to brighten your week! Your nuggets are ready. Go /wisdom.",
	"Did you know you have a wisdom superpower? Unleash it weekly with /wisdom!",
	"It's a beautiful day for some beautiful thoughts! Your weekly highlights await. Use /wisdom.",
	"Your knowledge garden needs watering! Nurture it with your weekly wisdom from /wisdom.",
	"The best kind of re-run: your brilliant highlights! Your weekly reminder to /wisdom.",
	"Stop, think, grow! Your weekly wisdom reminder. Find your nuggets with /wisdom.",
	"Your brain's favorite day? When it gets new wisdom! Your weekly update is here. Tap /wisdom.",
	"Curate your brilliance! Your weekly reminder to explore your highlights. Send /wisdom.",
	"Get ready for some mental fireworks! Your weekly wisdom nuggets are charged. Try /wisdom.",
	"Unlock the genius within your reads! Your weekly wisdom is calling. Pick it up with /wisdom.",
	"Your personal insight engine is revving up! Get your weekly thoughts with /wisdom.",
}
