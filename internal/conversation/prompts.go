package conversation

import "fmt"

// Scripted examiner lines. Question content comes from the session's reserved
// bank entries; these are only the connective tissue between stages.
const (
	scriptGreeting = "Hello, and welcome. I'm Maya, your examiner for today's speaking assessment. We'll go through a few short parts together. To begin, how are you doing today?"

	scriptIdentityConfirm = "Thank you. Before we start, could you please confirm your full name for the record?"

	scriptPart1Intro = "Great. In this first part, I'd like to ask you some questions about yourself and familiar topics. Let's begin."

	scriptPart2FollowUp = "Thank you for that. Briefly, is there anything you would have liked to add to what you just described?"

	scriptPart3Intro = "Now let's move to the final part. I'd like to discuss some more abstract questions related to the topic you just spoke about."

	scriptClosing = "That brings us to the end of the speaking assessment. Thank you for your time today. Your responses are now being evaluated, and your results will be available shortly."
)

func scriptPart2Brief(prepSeconds, speakSeconds int) string {
	return fmt.Sprintf(
		"Now we'll move on to Part 2. I'm going to give you a topic, and you'll have %d seconds to prepare. "+
			"You can make notes if you wish. Then I'd like you to talk about the topic for up to %d seconds.",
		prepSeconds, speakSeconds)
}

func scriptPart2Prep(topic string, prepSeconds int) string {
	return fmt.Sprintf("Here is your topic: %s Your %d seconds of preparation time start now. Tell me when you're ready.",
		topic, prepSeconds)
}

func scriptPart2Speak(speakSeconds int) string {
	return fmt.Sprintf("All right, please begin speaking about your topic now. You have up to %d seconds.", speakSeconds)
}
