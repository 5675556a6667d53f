package scripted

// Canned replies for the hero-section demo. Ordering matters: more specific
// rules sit above broader ones.

var defaultRules = []Rule{
	{
		Name:     "cooking",
		Keywords: []string{"cook", "food", "recipe"},
		Reply: `Got it. Here's how I'd approach your cooking video:

**Hook (0-5s)**
Open on your most satisfying moment. Don't save it for the end.

**Cut the dead air**
Any silence over 2 seconds between steps gets trimmed.

**Pacing**
- Faster cuts during prep
- Slower during key techniques so viewers can follow along

Upload your footage and I'll handle the rest.`,
	},
	{
		Name:     "startup",
		Keywords: []string{"startup", "content plan", "brand", "business"},
		Reply: `Here's a solid framework to start from:

**Weekly cadence**
- 2x educational posts
- 1x behind-the-scenes
- 1x founder perspective

**Formats that work**
- Short-form video: problem to solution in under 60 seconds
- Step-by-step breakdowns

What's your industry? I can make this a lot more targeted.`,
	},
	{
		Name:     "shotlist",
		Keywords: []string{"shot list", "shot", "shots"},
		Reply: `Here's a universal shot list to build from:

**Establishing shots**
- Wide shot of your main setting
- Detail close-ups

**Action shots**
- The process in motion
- Reaction shots

Tell me more about the video and I'll trim this down to exactly what you need.`,
	},
	{
		Name:     "vlog",
		Keywords: []string{"vlog", "daily", "capture", "film"},
		Reply: `Daily vlogs live or die by variety. Here's a capture checklist:

**Morning**
- Your actual routine, not a polished version

**Throughout the day**
- Any unexpected moment
- A small win or setback

**Evening**
- A reflection: what happened, what's next

The more you capture, the more you have to work with.`,
	},
}

const genericReply = `Good question. Here's where I'd start:

**Understand your goal first**
Growing an audience, promoting something, or documenting each calls for a different approach.

**Content that consistently works**
- Show the process, not just the result
- Be specific
- One strong idea per video beats five okay ones

Tell me more and I can get a lot more specific once I know what you're working on.`
